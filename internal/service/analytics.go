package service

import (
	"context"
	"sort"
	"time"

	"shortlink/internal/biz"
	"shortlink/internal/domain"

	"github.com/samber/lo"
)

// StatsReply aggregates a link's click statistics over an optional
// inclusive date range.
type StatsReply struct {
	Code            string           `json:"code"`
	TotalClicks     int64            `json:"total_clicks"`
	ByCountry       map[string]int64 `json:"by_country"`
	ByDeviceType    map[string]int64 `json:"by_device_type"`
	ByTrafficSource map[string]int64 `json:"by_traffic_source"`
}

// DailyBucket is one day's click count; days without clicks are absent.
type DailyBucket struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// HourlyBucket is one hour-of-day's click count.
type HourlyBucket struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// ClickInfo is the public representation of one click event.
type ClickInfo struct {
	ClickedAt      time.Time `json:"clicked_at"`
	Country        string    `json:"country"`
	City           string    `json:"city"`
	Browser        string    `json:"browser"`
	OS             string    `json:"os"`
	DeviceType     string    `json:"device_type"`
	ReferrerDomain string    `json:"referrer_domain"`
	TrafficSource  string    `json:"traffic_source"`
}

// ListClicksReply is one page of click events plus the total count.
type ListClicksReply struct {
	Clicks []*ClickInfo `json:"clicks"`
	Total  int64        `json:"total"`
}

// CleanupReply reports a retention cleanup run.
type CleanupReply struct {
	Deleted int64     `json:"deleted"`
	Cutoff  time.Time `json:"cutoff"`
}

// AnalyticsService exposes the read-side aggregations. Links are addressed
// by code at the boundary and resolved to ids internally.
type AnalyticsService struct {
	analytics *biz.AnalyticsUsecase
	shortener *biz.ShortenerUsecase
}

// NewAnalyticsService creates an AnalyticsService.
func NewAnalyticsService(analytics *biz.AnalyticsUsecase, shortener *biz.ShortenerUsecase) *AnalyticsService {
	return &AnalyticsService{analytics: analytics, shortener: shortener}
}

func (s *AnalyticsService) linkID(ctx context.Context, code string) (int64, error) {
	link, err := s.shortener.GetLink(ctx, code)
	if err != nil {
		return 0, toServiceError(err)
	}
	return link.ID(), nil
}

// Stats returns the aggregate counts for one link.
func (s *AnalyticsService) Stats(ctx context.Context, code string, rng *domain.DateRange) (*StatsReply, error) {
	id, err := s.linkID(ctx, code)
	if err != nil {
		return nil, err
	}

	total, err := s.analytics.TotalClicks(ctx, id, rng)
	if err != nil {
		return nil, toServiceError(err)
	}
	byCountry, err := s.analytics.ClicksByCountry(ctx, id, rng)
	if err != nil {
		return nil, toServiceError(err)
	}
	byDevice, err := s.analytics.ClicksByDeviceType(ctx, id, rng)
	if err != nil {
		return nil, toServiceError(err)
	}
	bySource, err := s.analytics.ClicksByTrafficSource(ctx, id, rng)
	if err != nil {
		return nil, toServiceError(err)
	}

	return &StatsReply{
		Code:            code,
		TotalClicks:     total,
		ByCountry:       byCountry,
		ByDeviceType:    byDevice,
		ByTrafficSource: bySource,
	}, nil
}

// Daily returns per-day click counts over the inclusive range, ascending.
func (s *AnalyticsService) Daily(ctx context.Context, code string, start, end time.Time) ([]DailyBucket, error) {
	id, err := s.linkID(ctx, code)
	if err != nil {
		return nil, err
	}

	buckets, err := s.analytics.DailyClicks(ctx, id, start, end)
	if err != nil {
		return nil, toServiceError(err)
	}

	result := lo.Map(lo.Keys(buckets), func(day time.Time, _ int) DailyBucket {
		return DailyBucket{Date: day.Format("2006-01-02"), Count: buckets[day]}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// Hourly returns one day's clicks bucketed by hour of day.
func (s *AnalyticsService) Hourly(ctx context.Context, code string, date time.Time) ([]HourlyBucket, error) {
	id, err := s.linkID(ctx, code)
	if err != nil {
		return nil, err
	}

	hours, err := s.analytics.HourlyClicks(ctx, id, date)
	if err != nil {
		return nil, toServiceError(err)
	}

	result := make([]HourlyBucket, 0, len(hours))
	for hour := 0; hour < 24; hour++ {
		if count, ok := hours[hour]; ok {
			result = append(result, HourlyBucket{Hour: hour, Count: count})
		}
	}
	return result, nil
}

// Recent returns the latest count clicks for a link, newest first.
func (s *AnalyticsService) Recent(ctx context.Context, code string, count int) ([]*ClickInfo, error) {
	id, err := s.linkID(ctx, code)
	if err != nil {
		return nil, err
	}

	events, err := s.analytics.RecentClicks(ctx, id, count)
	if err != nil {
		return nil, toServiceError(err)
	}
	return lo.Map(events, func(e *domain.ClickEvent, _ int) *ClickInfo { return toClickInfo(e) }), nil
}

// ListClicks pages through a link's click events, newest first.
func (s *AnalyticsService) ListClicks(ctx context.Context, code string, rng *domain.DateRange, page, pageSize int) (*ListClicksReply, error) {
	id, err := s.linkID(ctx, code)
	if err != nil {
		return nil, err
	}

	events, total, err := s.analytics.ListClicks(ctx, id, rng, page, pageSize)
	if err != nil {
		return nil, toServiceError(err)
	}
	return &ListClicksReply{
		Clicks: lo.Map(events, func(e *domain.ClickEvent, _ int) *ClickInfo { return toClickInfo(e) }),
		Total:  total,
	}, nil
}

// Cleanup removes click events older than the cutoff.
func (s *AnalyticsService) Cleanup(ctx context.Context, cutoff time.Time) (*CleanupReply, error) {
	deleted, err := s.analytics.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return nil, toServiceError(err)
	}
	return &CleanupReply{Deleted: deleted, Cutoff: cutoff}, nil
}

func toClickInfo(e *domain.ClickEvent) *ClickInfo {
	return &ClickInfo{
		ClickedAt:      e.ClickedAt,
		Country:        e.Country,
		City:           e.City,
		Browser:        e.Browser,
		OS:             e.OS,
		DeviceType:     string(e.DeviceType),
		ReferrerDomain: e.ReferrerDomain,
		TrafficSource:  string(e.TrafficSource),
	}
}
