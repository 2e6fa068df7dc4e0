package domain

import (
	"errors"
	"fmt"
)

var (
	ErrLinkNotFound    = errors.New("link not found")
	ErrCodeExists      = errors.New("short code already exists")
	ErrInvalidCode     = errors.New("invalid short code")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ForbiddenReason identifies why an existing link is not resolvable.
type ForbiddenReason string

const (
	ReasonExpired      ForbiddenReason = "expired"
	ReasonInactive     ForbiddenReason = "inactive"
	ReasonLimitReached ForbiddenReason = "limit_reached"
)

// ForbiddenError is returned when a link exists but cannot currently be
// resolved. The reason is kept for logging; how much of it reaches the end
// user is the delivery layer's call.
type ForbiddenError struct {
	Reason ForbiddenReason
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("link not resolvable: %s", e.Reason)
}

// NewForbidden creates a ForbiddenError with the given reason.
func NewForbidden(reason ForbiddenReason) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

// AsForbidden unwraps err into a ForbiddenError if it is one.
func AsForbidden(err error) (*ForbiddenError, bool) {
	var fe *ForbiddenError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
