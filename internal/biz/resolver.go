package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortlink/internal/domain"
	"shortlink/internal/domain/event"
	"shortlink/internal/ingest"
	"shortlink/pkg/codec"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/crypto/bcrypt"
)

// EventPublisher publishes domain events; satisfied by the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// Resolution is the successful outcome of a resolve request.
// When PasswordRequired is set, TargetURL is empty and the caller must go
// through VerifyPasswordAndResolve.
type Resolution struct {
	LinkID           int64
	TargetURL        string
	PasswordRequired bool
}

// ResolverUsecase orchestrates redirect resolution: code validation, link
// gating, the password gate, the atomic click increment and the hand-off
// to the ingestion pipeline.
type ResolverUsecase struct {
	repo   domain.LinkRepository
	sink   ingest.Sink
	events EventPublisher
	log    *log.Helper
}

// NewResolverUsecase creates a ResolverUsecase.
func NewResolverUsecase(repo domain.LinkRepository, sink ingest.Sink, events EventPublisher, logger log.Logger) *ResolverUsecase {
	return &ResolverUsecase{repo: repo, sink: sink, events: events, log: log.NewHelper(logger)}
}

// Resolve resolves a short code to its target URL.
//
// Outcomes: ErrInvalidCode (malformed, before any I/O), ErrLinkNotFound,
// ForbiddenError (expired, inactive, limit reached — checked in that
// order), a PasswordRequired resolution carrying no URL, or a redirect
// resolution. On success the click counter is incremented atomically and
// capture, when non-nil, is handed to the ingestion pipeline without
// blocking.
func (uc *ResolverUsecase) Resolve(ctx context.Context, code string, capture *domain.ClickCapture) (*Resolution, error) {
	proj, err := uc.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := gate(proj, time.Now().UTC()); err != nil {
		return nil, err
	}

	if proj.IsPasswordProtected {
		return &Resolution{LinkID: proj.ID, PasswordRequired: true}, nil
	}

	return uc.succeed(ctx, proj, capture)
}

// VerifyPasswordAndResolve resolves a password-protected link.
// A wrong password and an unknown code both yield ErrUnauthorized so the
// response does not leak whether the code exists.
func (uc *ResolverUsecase) VerifyPasswordAndResolve(ctx context.Context, code, password string, capture *domain.ClickCapture) (*Resolution, error) {
	proj, err := uc.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	if err := gate(proj, time.Now().UTC()); err != nil {
		return nil, err
	}

	if !proj.IsPasswordProtected {
		return uc.succeed(ctx, proj, capture)
	}

	// bcrypt comparison is constant-time over the derived key.
	if bcrypt.CompareHashAndPassword([]byte(proj.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrUnauthorized
	}

	return uc.succeed(ctx, proj, capture)
}

// IsValid reports whether the link behind code is resolvable at the given
// instant.
func (uc *ResolverUsecase) IsValid(ctx context.Context, code string, now time.Time) (bool, error) {
	proj, err := uc.lookup(ctx, code)
	if err != nil {
		return false, err
	}
	return proj.IsResolvable(now), nil
}

// IsActive reports whether the link behind code is active.
func (uc *ResolverUsecase) IsActive(ctx context.Context, code string) (bool, error) {
	proj, err := uc.lookup(ctx, code)
	if err != nil {
		return false, err
	}
	return proj.IsActive, nil
}

// IsClickLimitReached reports whether the link's click limit is consumed.
func (uc *ResolverUsecase) IsClickLimitReached(ctx context.Context, code string) (bool, error) {
	proj, err := uc.lookup(ctx, code)
	if err != nil {
		return false, err
	}
	return proj.IsClickLimitReached(), nil
}

// IsPasswordProtected reports whether resolving code requires a password.
// Used by pre-flight checks before showing the password form.
func (uc *ResolverUsecase) IsPasswordProtected(ctx context.Context, code string) (bool, error) {
	proj, err := uc.lookup(ctx, code)
	if err != nil {
		return false, err
	}
	return proj.IsPasswordProtected, nil
}

// lookup validates the code shape and fetches the hot-path projection.
func (uc *ResolverUsecase) lookup(ctx context.Context, code string) (*domain.LinkProjection, error) {
	if !codec.IsValidCode(code) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCode, code)
	}

	proj, err := uc.repo.FindProjection(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup projection for %q: %w", code, err)
	}
	if proj == nil {
		return nil, domain.ErrLinkNotFound
	}
	return proj, nil
}

// gate runs the validity checks, short-circuiting in the documented order:
// expired, then inactive, then click limit.
func gate(proj *domain.LinkProjection, now time.Time) error {
	switch {
	case proj.IsExpired(now):
		return domain.NewForbidden(domain.ReasonExpired)
	case !proj.IsActive:
		return domain.NewForbidden(domain.ReasonInactive)
	case proj.IsClickLimitReached():
		return domain.NewForbidden(domain.ReasonLimitReached)
	}
	return nil
}

// succeed applies the atomic conditional increment, hands the capture to
// the ingestion pipeline and publishes the click event.
func (uc *ResolverUsecase) succeed(ctx context.Context, proj *domain.LinkProjection, capture *domain.ClickCapture) (*Resolution, error) {
	applied, err := uc.repo.IncrementClicks(ctx, proj.Code, time.Now().UTC())
	if err != nil {
		// Do not drop the outcome silently: surface storage failures so
		// callers can log and reconcile, but never retry here.
		return nil, fmt.Errorf("increment clicks for %q: %w", proj.Code, err)
	}
	if !applied {
		// The link became invalid between lookup and increment. The
		// increment is a no-op, not an error; the redirect still stands.
		uc.log.WithContext(ctx).Infof("click increment skipped, link no longer valid: %s", proj.Code)
	}

	if capture != nil {
		capture.LinkID = proj.ID
		capture.Code = proj.Code
		if capture.ClickedAt.IsZero() {
			capture.ClickedAt = time.Now().UTC()
		}
		uc.sink.Enqueue(*capture)
		uc.publishClick(ctx, proj, capture)
	}

	return &Resolution{LinkID: proj.ID, TargetURL: proj.OriginalURL}, nil
}

func (uc *ResolverUsecase) publishClick(ctx context.Context, proj *domain.LinkProjection, capture *domain.ClickCapture) {
	if uc.events == nil {
		return
	}

	count := proj.TotalClicks + 1
	if err := uc.events.Publish(ctx, event.NewLinkClicked(proj.Code, count, capture.UserAgent, capture.IPAddress, capture.Referrer)); err != nil {
		uc.log.WithContext(ctx).Warnf("failed to publish click event: %v", err)
	}
	if milestone := event.CheckMilestone(proj.TotalClicks, count); milestone > 0 {
		if err := uc.events.Publish(ctx, event.NewClickMilestoneReached(proj.Code, milestone, count)); err != nil {
			uc.log.WithContext(ctx).Warnf("failed to publish milestone event: %v", err)
		}
	}
}
