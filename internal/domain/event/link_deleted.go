package event

// LinkDeleted is raised when a short link is removed.
type LinkDeleted struct {
	Base
	Code string
}

// NewLinkDeleted creates a new LinkDeleted event.
func NewLinkDeleted(code string) LinkDeleted {
	return LinkDeleted{
		Base: NewBase(code),
		Code: code,
	}
}

// EventName returns the event name.
func (e LinkDeleted) EventName() string {
	return "link.deleted"
}
