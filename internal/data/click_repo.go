package data

import (
	"context"
	"time"

	"shortlink/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

// Compile-time interface check
var _ domain.ClickRepository = (*clickRepo)(nil)

// clickRepo implements domain.ClickRepository over the append-only
// click_events table. Timestamps are stored as unix seconds, which keeps
// the day and hour bucket arithmetic identical across drivers.
type clickRepo struct {
	data *Data
	log  *log.Helper
}

// NewClickRepo creates a new click repository.
func NewClickRepo(data *Data, logger log.Logger) domain.ClickRepository {
	return &clickRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Insert appends one click event.
func (r *clickRepo) Insert(ctx context.Context, e *domain.ClickEvent) error {
	_, err := r.data.db.ExecContext(ctx,
		`INSERT INTO click_events (link_id, clicked_at, ip_address, session_id, user_agent, referrer,
		   utm_source, utm_medium, utm_campaign, utm_term, utm_content,
		   country, city, browser, os, device, device_type, referrer_domain, traffic_source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		e.LinkID,
		e.ClickedAt.Unix(),
		e.IPAddress,
		e.SessionID,
		e.UserAgent,
		e.Referrer,
		e.UTM.Source,
		e.UTM.Medium,
		e.UTM.Campaign,
		e.UTM.Term,
		e.UTM.Content,
		e.Country,
		e.City,
		e.Browser,
		e.OS,
		e.Device,
		string(e.DeviceType),
		e.ReferrerDomain,
		string(e.TrafficSource),
	)
	return err
}

// CountInRange counts clicks within the inclusive range.
func (r *clickRepo) CountInRange(ctx context.Context, linkID int64, from, to time.Time) (int64, error) {
	var count int64
	err := r.data.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM click_events WHERE link_id = $1 AND clicked_at >= $2 AND clicked_at <= $3`,
		linkID, from.Unix(), to.Unix(),
	).Scan(&count)
	return count, err
}

// CountByCountry groups by the literal stored country value.
func (r *clickRepo) CountByCountry(ctx context.Context, linkID int64, from, to time.Time) ([]domain.GroupCount, error) {
	return r.groupCount(ctx,
		`SELECT country, COUNT(*) AS cnt
		 FROM click_events
		 WHERE link_id = $1 AND clicked_at >= $2 AND clicked_at <= $3
		 GROUP BY country
		 ORDER BY cnt DESC, country ASC`,
		linkID, from, to)
}

// CountByDeviceType groups by device type, normalizing empty to Unknown.
func (r *clickRepo) CountByDeviceType(ctx context.Context, linkID int64, from, to time.Time) ([]domain.GroupCount, error) {
	return r.groupCount(ctx,
		`SELECT COALESCE(NULLIF(device_type, ''), 'Unknown') AS grp, COUNT(*) AS cnt
		 FROM click_events
		 WHERE link_id = $1 AND clicked_at >= $2 AND clicked_at <= $3
		 GROUP BY grp
		 ORDER BY cnt DESC, grp ASC`,
		linkID, from, to)
}

// CountByTrafficSource groups by traffic source, normalizing empty to
// Unknown.
func (r *clickRepo) CountByTrafficSource(ctx context.Context, linkID int64, from, to time.Time) ([]domain.GroupCount, error) {
	return r.groupCount(ctx,
		`SELECT COALESCE(NULLIF(traffic_source, ''), 'Unknown') AS grp, COUNT(*) AS cnt
		 FROM click_events
		 WHERE link_id = $1 AND clicked_at >= $2 AND clicked_at <= $3
		 GROUP BY grp
		 ORDER BY cnt DESC, grp ASC`,
		linkID, from, to)
}

func (r *clickRepo) groupCount(ctx context.Context, query string, linkID int64, from, to time.Time) ([]domain.GroupCount, error) {
	rows, err := r.data.db.QueryContext(ctx, query, linkID, from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.GroupCount
	for rows.Next() {
		var gc domain.GroupCount
		if err := rows.Scan(&gc.Value, &gc.Count); err != nil {
			return nil, err
		}
		result = append(result, gc)
	}
	return result, rows.Err()
}

// DailyCounts buckets clicks by UTC calendar day using integer division
// on the unix-seconds timestamp. Empty days produce no rows.
func (r *clickRepo) DailyCounts(ctx context.Context, linkID int64, from, to time.Time) ([]domain.BucketCount, error) {
	rows, err := r.data.db.QueryContext(ctx,
		`SELECT (clicked_at / 86400) * 86400 AS day, COUNT(*)
		 FROM click_events
		 WHERE link_id = $1 AND clicked_at >= $2 AND clicked_at <= $3
		 GROUP BY day
		 ORDER BY day ASC`,
		linkID, from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BucketCount
	for rows.Next() {
		var (
			day   int64
			count int64
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		result = append(result, domain.BucketCount{Bucket: time.Unix(day, 0).UTC(), Count: count})
	}
	return result, rows.Err()
}

// HourlyCounts buckets one UTC calendar day's clicks by hour of day. The
// time component of day is ignored.
func (r *clickRepo) HourlyCounts(ctx context.Context, linkID int64, day time.Time) ([]domain.HourCount, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour).Unix()

	rows, err := r.data.db.QueryContext(ctx,
		`SELECT (clicked_at % 86400) / 3600 AS hour, COUNT(*)
		 FROM click_events
		 WHERE link_id = $1 AND clicked_at >= $2 AND clicked_at < $3
		 GROUP BY hour
		 ORDER BY hour ASC`,
		linkID, dayStart, dayStart+86400)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HourCount
	for rows.Next() {
		var hc domain.HourCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, err
		}
		result = append(result, hc)
	}
	return result, rows.Err()
}

// Recent returns the most recent limit events, newest first. Ties on the
// timestamp break by id so the ordering is stable.
func (r *clickRepo) Recent(ctx context.Context, linkID int64, limit int) ([]*domain.ClickEvent, error) {
	rows, err := r.data.db.QueryContext(ctx,
		`SELECT `+clickColumns+`
		 FROM click_events
		 WHERE link_id = $1
		 ORDER BY clicked_at DESC, id DESC
		 LIMIT $2`,
		linkID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectClicks(rows)
}

// List returns a page of events within the inclusive range, newest first,
// plus the total count.
func (r *clickRepo) List(ctx context.Context, linkID int64, from, to time.Time, page, pageSize int) ([]*domain.ClickEvent, int64, error) {
	offset := (page - 1) * pageSize

	rows, err := r.data.db.QueryContext(ctx,
		`SELECT `+clickColumns+`
		 FROM click_events
		 WHERE link_id = $1 AND clicked_at >= $2 AND clicked_at <= $3
		 ORDER BY clicked_at DESC, id DESC
		 LIMIT $4 OFFSET $5`,
		linkID, from.Unix(), to.Unix(), pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events, err := collectClicks(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = r.data.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM click_events WHERE link_id = $1 AND clicked_at >= $2 AND clicked_at <= $3`,
		linkID, from.Unix(), to.Unix()).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// DeleteOlderThan removes events strictly older than cutoff. Events
// exactly at the cutoff are retained.
func (r *clickRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.data.db.ExecContext(ctx,
		`DELETE FROM click_events WHERE clicked_at < $1`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const clickColumns = `id, link_id, clicked_at, ip_address, session_id, user_agent, referrer,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	country, city, browser, os, device, device_type, referrer_domain, traffic_source`

func collectClicks(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*domain.ClickEvent, error) {
	var events []*domain.ClickEvent
	for rows.Next() {
		var (
			e          domain.ClickEvent
			clickedAt  int64
			deviceType string
			source     string
		)
		if err := rows.Scan(&e.ID, &e.LinkID, &clickedAt, &e.IPAddress, &e.SessionID, &e.UserAgent, &e.Referrer,
			&e.UTM.Source, &e.UTM.Medium, &e.UTM.Campaign, &e.UTM.Term, &e.UTM.Content,
			&e.Country, &e.City, &e.Browser, &e.OS, &e.Device, &deviceType, &e.ReferrerDomain, &source); err != nil {
			return nil, err
		}
		e.ClickedAt = time.Unix(clickedAt, 0).UTC()
		e.DeviceType = domain.DeviceType(deviceType)
		e.TrafficSource = domain.TrafficSource(source)
		events = append(events, &e)
	}
	return events, rows.Err()
}
