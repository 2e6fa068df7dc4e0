package domain

import (
	"context"
	"time"
)

// LinkRepository defines persistence for short links. Defined in the domain
// layer and implemented in the data layer, following the Dependency
// Inversion Principle.
type LinkRepository interface {
	// NextLinkID reserves the next numeric identifier. The identifier is
	// the codec input for deterministic code generation.
	NextLinkID(ctx context.Context) (int64, error)

	// Create persists a new link together with its uncommitted domain
	// events (outbox) in one transaction, then assigns the link's ID.
	Create(ctx context.Context, link *ShortLink) error

	// Update persists mutations of an existing link.
	Update(ctx context.Context, link *ShortLink) error

	// FindByCode retrieves the full aggregate. Returns ErrLinkNotFound if
	// no link carries the code.
	FindByCode(ctx context.Context, code string) (*ShortLink, error)

	// FindProjection retrieves the narrow hot-path read model.
	// Returns nil, nil when the code does not exist.
	FindProjection(ctx context.Context, code string) (*LinkProjection, error)

	// CodeExists reports whether a short code is taken.
	CodeExists(ctx context.Context, code string) (bool, error)

	// IncrementClicks applies the atomic conditional click increment.
	// Returns false, nil when the link is no longer valid (inactive,
	// expired or at its limit) — a no-op, not an error.
	IncrementClicks(ctx context.Context, code string, now time.Time) (bool, error)

	// Delete removes a link by code.
	Delete(ctx context.Context, code string) error

	// FindAll lists links with pagination, newest first. Returns the page
	// and the total count.
	FindAll(ctx context.Context, page, pageSize int) ([]*ShortLink, int64, error)
}

// ClickRepository defines the append-only click-event store and its
// read-side aggregations. Date ranges are inclusive on both ends.
type ClickRepository interface {
	// Insert appends one click event. High insert throughput is expected;
	// no cascading writes.
	Insert(ctx context.Context, e *ClickEvent) error

	// CountInRange counts clicks for a link within [from, to].
	CountInRange(ctx context.Context, linkID int64, from, to time.Time) (int64, error)

	// CountByCountry groups clicks by the literal stored country value.
	CountByCountry(ctx context.Context, linkID int64, from, to time.Time) ([]GroupCount, error)

	// CountByDeviceType groups clicks by device type; empty values are
	// normalized to Unknown.
	CountByDeviceType(ctx context.Context, linkID int64, from, to time.Time) ([]GroupCount, error)

	// CountByTrafficSource groups clicks by traffic source; empty values
	// are normalized to Unknown.
	CountByTrafficSource(ctx context.Context, linkID int64, from, to time.Time) ([]GroupCount, error)

	// DailyCounts buckets clicks by UTC calendar day. Days without clicks
	// are absent.
	DailyCounts(ctx context.Context, linkID int64, from, to time.Time) ([]BucketCount, error)

	// HourlyCounts buckets one UTC calendar day's clicks by hour of day.
	// Hours without clicks are absent.
	HourlyCounts(ctx context.Context, linkID int64, day time.Time) ([]HourCount, error)

	// Recent returns the most recent limit events, newest first. Short
	// results are not an error.
	Recent(ctx context.Context, linkID int64, limit int) ([]*ClickEvent, error)

	// List returns a page of events within [from, to], newest first, plus
	// the total count.
	List(ctx context.Context, linkID int64, from, to time.Time, page, pageSize int) ([]*ClickEvent, int64, error)

	// DeleteOlderThan removes events strictly older than cutoff and
	// returns the number deleted. Events exactly at cutoff are retained.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
