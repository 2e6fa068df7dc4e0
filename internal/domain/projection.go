package domain

import "time"

// LinkProjection is the narrow read model the redirect hot path works with.
// It carries only the fields the gating checks need, never the full
// aggregate.
type LinkProjection struct {
	ID                  int64      `json:"id"`
	Code                string     `json:"code"`
	OriginalURL         string     `json:"original_url"`
	IsActive            bool       `json:"is_active"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	ClickLimit          int64      `json:"click_limit"`
	TotalClicks         int64      `json:"total_clicks"`
	IsPasswordProtected bool       `json:"is_password_protected"`
	PasswordHash        string     `json:"password_hash,omitempty"`
}

// IsExpired reports whether the link has expired at the given instant.
// The boundary is exclusive: expiresAt == now means expired.
func (p *LinkProjection) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// IsClickLimitReached reports whether the click limit has been consumed.
// A negative limit means unlimited.
func (p *LinkProjection) IsClickLimitReached() bool {
	return p.ClickLimit >= 0 && p.TotalClicks >= p.ClickLimit
}

// IsResolvable reports whether the link can serve a redirect now.
func (p *LinkProjection) IsResolvable(now time.Time) bool {
	return p.IsActive && !p.IsExpired(now) && !p.IsClickLimitReached()
}
