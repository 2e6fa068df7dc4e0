package domain

import (
	"time"

	"shortlink/internal/domain/event"
)

// UnlimitedClicks is the canonical click-limit value for links without a
// limit. Any negative limit is treated as unlimited.
const UnlimitedClicks int64 = -1

// Compile-time interface checks
var (
	_ AggregateRoot = (*ShortLink)(nil)
	_ AggregateRoot = (*DeletedLinkAggregate)(nil)
)

// OwnerType distinguishes who owns a link. Ownership matters for access
// control only, never for resolution.
type OwnerType string

const (
	OwnerUser         OwnerType = "user"
	OwnerOrganization OwnerType = "organization"
)

// Owner is the ownership metadata attached to a link.
type Owner struct {
	Type           OwnerType
	UserID         int64
	OrganizationID int64
}

// ShortLink is the aggregate root for one shortening mapping.
type ShortLink struct {
	id          int64
	code        string
	originalURL string

	isActive    bool
	expiresAt   *time.Time
	clickLimit  int64
	totalClicks int64

	passwordHash string

	owner     Owner
	createdAt time.Time
	updatedAt time.Time

	events []event.Event
}

// NewShortLink creates a new active link and raises a LinkCreated event.
// passwordHash may be empty; clickLimit < 0 means unlimited.
func NewShortLink(code, originalURL string, expiresAt *time.Time, clickLimit int64, passwordHash string, owner Owner) *ShortLink {
	if clickLimit < 0 {
		clickLimit = UnlimitedClicks
	}
	now := time.Now().UTC()
	l := &ShortLink{
		code:         code,
		originalURL:  originalURL,
		isActive:     true,
		expiresAt:    expiresAt,
		clickLimit:   clickLimit,
		passwordHash: passwordHash,
		owner:        owner,
		createdAt:    now,
		updatedAt:    now,
		events:       make([]event.Event, 0),
	}
	l.addEvent(event.NewLinkCreated(code, originalURL, expiresAt))
	return l
}

// ReconstructShortLink recreates a link from persistence without raising
// events.
func ReconstructShortLink(
	id int64,
	code, originalURL string,
	isActive bool,
	expiresAt *time.Time,
	clickLimit, totalClicks int64,
	passwordHash string,
	owner Owner,
	createdAt, updatedAt time.Time,
) *ShortLink {
	return &ShortLink{
		id:           id,
		code:         code,
		originalURL:  originalURL,
		isActive:     isActive,
		expiresAt:    expiresAt,
		clickLimit:   clickLimit,
		totalClicks:  totalClicks,
		passwordHash: passwordHash,
		owner:        owner,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (l *ShortLink) ID() int64             { return l.id }
func (l *ShortLink) Code() string          { return l.code }
func (l *ShortLink) OriginalURL() string   { return l.originalURL }
func (l *ShortLink) IsActive() bool        { return l.isActive }
func (l *ShortLink) ExpiresAt() *time.Time { return l.expiresAt }
func (l *ShortLink) ClickLimit() int64     { return l.clickLimit }
func (l *ShortLink) TotalClicks() int64    { return l.totalClicks }
func (l *ShortLink) PasswordHash() string  { return l.passwordHash }
func (l *ShortLink) Owner() Owner          { return l.owner }
func (l *ShortLink) CreatedAt() time.Time  { return l.createdAt }
func (l *ShortLink) UpdatedAt() time.Time  { return l.updatedAt }

// IsPasswordProtected reports whether resolving this link requires a
// password.
func (l *ShortLink) IsPasswordProtected() bool {
	return l.passwordHash != ""
}

// IsExpired reports whether the link has expired at the given instant.
// The boundary is exclusive: a link expiring exactly now is expired.
func (l *ShortLink) IsExpired(now time.Time) bool {
	return l.expiresAt != nil && !l.expiresAt.After(now)
}

// IsClickLimitReached reports whether the click limit has been consumed.
func (l *ShortLink) IsClickLimitReached() bool {
	return l.clickLimit >= 0 && l.totalClicks >= l.clickLimit
}

// IsResolvable reports whether the link can serve a redirect at the given
// instant.
func (l *ShortLink) IsResolvable(now time.Time) bool {
	return l.isActive && !l.IsExpired(now) && !l.IsClickLimitReached()
}

// ChangeCode assigns a new short code. The caller is responsible for
// conflict validation.
func (l *ShortLink) ChangeCode(code string) {
	l.code = code
	l.touch()
}

// SetExpiry updates the expiration timestamp; nil clears it.
func (l *ShortLink) SetExpiry(expiresAt *time.Time) {
	l.expiresAt = expiresAt
	l.touch()
}

// Activate makes the link resolvable again.
func (l *ShortLink) Activate() {
	l.isActive = true
	l.touch()
}

// Deactivate takes the link out of rotation without deleting it.
func (l *ShortLink) Deactivate() {
	l.isActive = false
	l.touch()
}

// SetID is called by the repository after the initial insert.
func (l *ShortLink) SetID(id int64) {
	l.id = id
}

func (l *ShortLink) touch() {
	l.updatedAt = time.Now().UTC()
}

func (l *ShortLink) addEvent(e event.Event) {
	l.events = append(l.events, e)
}

// Events returns all uncommitted domain events.
func (l *ShortLink) Events() []event.Event {
	return l.events
}

// ClearEvents clears all domain events after they have been dispatched.
func (l *ShortLink) ClearEvents() {
	l.events = make([]event.Event, 0)
}

// DeletedLinkAggregate is a minimal aggregate for raising LinkDeleted events.
type DeletedLinkAggregate struct {
	events []event.Event
}

// NewDeletedLinkAggregate creates an aggregate carrying a LinkDeleted event.
func NewDeletedLinkAggregate(code string) *DeletedLinkAggregate {
	agg := &DeletedLinkAggregate{events: make([]event.Event, 0, 1)}
	agg.events = append(agg.events, event.NewLinkDeleted(code))
	return agg
}

// Events returns all uncommitted domain events.
func (a *DeletedLinkAggregate) Events() []event.Event {
	return a.events
}

// ClearEvents clears all domain events.
func (a *DeletedLinkAggregate) ClearEvents() {
	a.events = make([]event.Event, 0)
}
