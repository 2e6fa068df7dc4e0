package service

import (
	"errors"

	"shortlink/internal/domain"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// toServiceError maps domain errors to kratos transport errors so the
// HTTP layer renders the right status code. The forbidden reason travels
// in metadata; unknown errors pass through untouched.
func toServiceError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrLinkNotFound):
		return kerrors.NotFound("LINK_NOT_FOUND", "short link not found")
	case errors.Is(err, domain.ErrUnauthorized):
		return kerrors.Unauthorized("UNAUTHORIZED", "password required or incorrect")
	case errors.Is(err, domain.ErrCodeExists):
		return kerrors.Conflict("CODE_EXISTS", "short code already exists")
	case errors.Is(err, domain.ErrInvalidCode):
		return kerrors.BadRequest("INVALID_CODE", err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		return kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	}

	if forbidden, ok := domain.AsForbidden(err); ok {
		return kerrors.Forbidden("LINK_NOT_RESOLVABLE", "link cannot be resolved").
			WithMetadata(map[string]string{"reason": string(forbidden.Reason)})
	}

	return err
}
