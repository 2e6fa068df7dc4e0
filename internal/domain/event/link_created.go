package event

import "time"

// LinkCreated is raised when a new short link is accepted.
type LinkCreated struct {
	Base
	Code        string
	OriginalURL string
	ExpiresAt   *time.Time
}

// NewLinkCreated creates a new LinkCreated event.
func NewLinkCreated(code, originalURL string, expiresAt *time.Time) LinkCreated {
	return LinkCreated{
		Base:        NewBase(code),
		Code:        code,
		OriginalURL: originalURL,
		ExpiresAt:   expiresAt,
	}
}

// EventName returns the event name.
func (e LinkCreated) EventName() string {
	return "link.created"
}
