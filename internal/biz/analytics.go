package biz

import (
	"context"
	"fmt"
	"time"

	"shortlink/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/samber/lo"
)

const (
	MinPageSize = 1
	MaxPageSize = 1000
)

// Open-range bounds used when a query has no explicit date range: any
// stored timestamp falls between them.
var (
	rangeMin = time.Unix(0, 0).UTC()
	rangeMax = time.Unix(1<<40, 0).UTC()
)

// AnalyticsUsecase serves read-side aggregations over the click-event
// store and the retention cleanup. Returned counts may lag concurrent
// increments slightly; that is acceptable.
type AnalyticsUsecase struct {
	clicks domain.ClickRepository
	log    *log.Helper
}

// NewAnalyticsUsecase creates an AnalyticsUsecase.
func NewAnalyticsUsecase(clicks domain.ClickRepository, logger log.Logger) *AnalyticsUsecase {
	return &AnalyticsUsecase{clicks: clicks, log: log.NewHelper(logger)}
}

// TotalClicks counts clicks for a link, optionally bounded by an inclusive
// date range.
func (uc *AnalyticsUsecase) TotalClicks(ctx context.Context, linkID int64, rng *domain.DateRange) (int64, error) {
	from, to, err := bounds(rng)
	if err != nil {
		return 0, err
	}
	return uc.clicks.CountInRange(ctx, linkID, from, to)
}

// ClicksByCountry groups clicks by the literal stored country value.
func (uc *AnalyticsUsecase) ClicksByCountry(ctx context.Context, linkID int64, rng *domain.DateRange) (map[string]int64, error) {
	from, to, err := bounds(rng)
	if err != nil {
		return nil, err
	}
	counts, err := uc.clicks.CountByCountry(ctx, linkID, from, to)
	if err != nil {
		return nil, err
	}
	return toMap(counts), nil
}

// ClicksByDeviceType groups clicks by device type; empty categories
// normalize to Unknown.
func (uc *AnalyticsUsecase) ClicksByDeviceType(ctx context.Context, linkID int64, rng *domain.DateRange) (map[string]int64, error) {
	from, to, err := bounds(rng)
	if err != nil {
		return nil, err
	}
	counts, err := uc.clicks.CountByDeviceType(ctx, linkID, from, to)
	if err != nil {
		return nil, err
	}
	return toMap(counts), nil
}

// ClicksByTrafficSource groups clicks by traffic source; empty categories
// normalize to Unknown.
func (uc *AnalyticsUsecase) ClicksByTrafficSource(ctx context.Context, linkID int64, rng *domain.DateRange) (map[string]int64, error) {
	from, to, err := bounds(rng)
	if err != nil {
		return nil, err
	}
	counts, err := uc.clicks.CountByTrafficSource(ctx, linkID, from, to)
	if err != nil {
		return nil, err
	}
	return toMap(counts), nil
}

// DailyClicks buckets clicks by UTC calendar day over the inclusive range.
// Days with zero clicks are absent from the map, never present with 0.
func (uc *AnalyticsUsecase) DailyClicks(ctx context.Context, linkID int64, start, end time.Time) (map[time.Time]int64, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: start after end", domain.ErrInvalidArgument)
	}
	buckets, err := uc.clicks.DailyCounts(ctx, linkID, start, end)
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(buckets, func(b domain.BucketCount) (time.Time, int64) {
		return b.Bucket, b.Count
	}), nil
}

// HourlyClicks buckets one UTC calendar day's clicks by hour of day
// (0-23). The time component of date is ignored; absent hours imply zero.
func (uc *AnalyticsUsecase) HourlyClicks(ctx context.Context, linkID int64, date time.Time) (map[int]int64, error) {
	buckets, err := uc.clicks.HourlyCounts(ctx, linkID, date)
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(buckets, func(b domain.HourCount) (int, int64) {
		return b.Hour, b.Count
	}), nil
}

// RecentClicks returns the most recent count events, newest first. Fewer
// than count is not an error.
func (uc *AnalyticsUsecase) RecentClicks(ctx context.Context, linkID int64, count int) ([]*domain.ClickEvent, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be positive", domain.ErrInvalidArgument)
	}
	return uc.clicks.Recent(ctx, linkID, count)
}

// ListClicks pages through click events, newest first.
func (uc *AnalyticsUsecase) ListClicks(ctx context.Context, linkID int64, rng *domain.DateRange, page, pageSize int) ([]*domain.ClickEvent, int64, error) {
	if err := validatePage(page, pageSize); err != nil {
		return nil, 0, err
	}
	from, to, err := bounds(rng)
	if err != nil {
		return nil, 0, err
	}
	return uc.clicks.List(ctx, linkID, from, to, page, pageSize)
}

// DeleteOlderThan removes events strictly older than cutoff and returns
// the number deleted. Events exactly at cutoff are retained.
func (uc *AnalyticsUsecase) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := uc.clicks.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention cleanup at %s: %w", cutoff.Format(time.RFC3339), err)
	}
	uc.log.WithContext(ctx).Infof("retention cleanup removed %d click events older than %s", deleted, cutoff.Format(time.RFC3339))
	return deleted, nil
}

func toMap(counts []domain.GroupCount) map[string]int64 {
	return lo.SliceToMap(counts, func(c domain.GroupCount) (string, int64) {
		return c.Value, c.Count
	})
}

// bounds validates an optional range and widens nil to the open range.
// Validation happens before any I/O.
func bounds(rng *domain.DateRange) (time.Time, time.Time, error) {
	if rng == nil {
		return rangeMin, rangeMax, nil
	}
	if err := rng.Validate(); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start after end", domain.ErrInvalidArgument)
	}
	return rng.Start, rng.End, nil
}

func validatePage(page, pageSize int) error {
	if page < 1 {
		return fmt.Errorf("%w: page must be >= 1", domain.ErrInvalidArgument)
	}
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return fmt.Errorf("%w: page size must be in [%d, %d]", domain.ErrInvalidArgument, MinPageSize, MaxPageSize)
	}
	return nil
}
