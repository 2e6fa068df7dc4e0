package event

// LinkClicked is raised when a short link is resolved for redirection.
type LinkClicked struct {
	Base
	Code       string
	ClickCount int64
	UserAgent  string
	IPAddress  string
	Referrer   string
}

// NewLinkClicked creates a new LinkClicked event.
func NewLinkClicked(code string, clickCount int64, userAgent, ipAddress, referrer string) LinkClicked {
	return LinkClicked{
		Base:       NewBase(code),
		Code:       code,
		ClickCount: clickCount,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
		Referrer:   referrer,
	}
}

// EventName returns the event name.
func (e LinkClicked) EventName() string {
	return "link.clicked"
}
