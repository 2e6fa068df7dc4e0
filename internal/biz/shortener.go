package biz

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shortlink/internal/domain"
	"shortlink/pkg/codec"

	"github.com/go-kratos/kratos/v2/log"
)

// ShortenerConfig carries the tunable code-generation parameters.
type ShortenerConfig struct {
	MinCodeLength           int
	ExpectedURLs            int64
	MaxCollisionProbability float64
	CustomCodeMinLength     int
	CustomCodeMaxLength     int
	ReservedWords           []string
	BaseURL                 string
}

// CreateLinkParams are the accepted inputs for a shortening request.
// PasswordHash, when set, must already be a bcrypt hash; hashing is the
// authentication collaborator's job.
type CreateLinkParams struct {
	OriginalURL  string
	CustomCode   *string
	ExpiresAt    *time.Time
	ClickLimit   *int64
	PasswordHash string
	Owner        domain.Owner
}

// ShortenerUsecase creates and administers short links.
type ShortenerUsecase struct {
	repo      domain.LinkRepository
	generator *codec.Generator
	rules     codec.CustomCodeRules
	events    EventPublisher
	baseURL   string
	log       *log.Helper
}

// NewShortenerUsecase creates a ShortenerUsecase. The effective code length
// is the larger of the configured minimum and the birthday-bound
// recommendation for the expected URL volume.
func NewShortenerUsecase(cfg ShortenerConfig, repo domain.LinkRepository, events EventPublisher, logger log.Logger) *ShortenerUsecase {
	length := cfg.MinCodeLength
	if cfg.ExpectedURLs > 0 && cfg.MaxCollisionProbability > 0 {
		if rec := codec.RecommendCodeLength(cfg.ExpectedURLs, cfg.MaxCollisionProbability); rec > length {
			length = rec
		}
	}

	return &ShortenerUsecase{
		repo:      repo,
		generator: codec.NewGenerator(length),
		rules:     codec.NewCustomCodeRules(cfg.CustomCodeMinLength, cfg.CustomCodeMaxLength, cfg.ReservedWords),
		events:    events,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		log:       log.NewHelper(logger),
	}
}

// CreateLink accepts a shortening request. The code comes either from the
// validated custom alias or from the codec's collision-resistant
// generation seeded with a reserved numeric id.
func (uc *ShortenerUsecase) CreateLink(ctx context.Context, params CreateLinkParams) (*domain.ShortLink, error) {
	if err := validateOriginalURL(params.OriginalURL); err != nil {
		return nil, err
	}

	code, err := uc.assignCode(ctx, params.CustomCode)
	if err != nil {
		return nil, err
	}

	clickLimit := domain.UnlimitedClicks
	if params.ClickLimit != nil {
		clickLimit = *params.ClickLimit
	}

	link := domain.NewShortLink(code, params.OriginalURL, params.ExpiresAt, clickLimit, params.PasswordHash, params.Owner)
	if err := uc.repo.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create link %q: %w", code, err)
	}

	uc.log.WithContext(ctx).Infof("link created: code=%s id=%d", link.Code(), link.ID())
	return link, nil
}

// GetLink retrieves the full aggregate for administrative flows.
func (uc *ShortenerUsecase) GetLink(ctx context.Context, code string) (*domain.ShortLink, error) {
	return uc.repo.FindByCode(ctx, code)
}

// ListLinks pages through links, newest first.
func (uc *ShortenerUsecase) ListLinks(ctx context.Context, page, pageSize int) ([]*domain.ShortLink, int64, error) {
	if err := validatePage(page, pageSize); err != nil {
		return nil, 0, err
	}
	return uc.repo.FindAll(ctx, page, pageSize)
}

// UpdateCode assigns a new short code to an existing link, validating the
// new code for conflicts first.
func (uc *ShortenerUsecase) UpdateCode(ctx context.Context, oldCode, newCode string) (*domain.ShortLink, error) {
	if err := uc.rules.Validate(newCode); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCode, err)
	}

	taken, err := uc.repo.CodeExists(ctx, newCode)
	if err != nil {
		return nil, fmt.Errorf("code existence check: %w", err)
	}
	if taken {
		return nil, domain.ErrCodeExists
	}

	link, err := uc.repo.FindByCode(ctx, oldCode)
	if err != nil {
		return nil, err
	}
	link.ChangeCode(newCode)
	if err := uc.repo.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("update code %q -> %q: %w", oldCode, newCode, err)
	}
	return link, nil
}

// SetActive toggles a link's active flag.
func (uc *ShortenerUsecase) SetActive(ctx context.Context, code string, active bool) (*domain.ShortLink, error) {
	link, err := uc.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if active {
		link.Activate()
	} else {
		link.Deactivate()
	}
	if err := uc.repo.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("set active=%t for %q: %w", active, code, err)
	}
	return link, nil
}

// SetExpiry updates a link's expiration; nil clears it.
func (uc *ShortenerUsecase) SetExpiry(ctx context.Context, code string, expiresAt *time.Time) (*domain.ShortLink, error) {
	link, err := uc.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	link.SetExpiry(expiresAt)
	if err := uc.repo.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("set expiry for %q: %w", code, err)
	}
	return link, nil
}

// DeleteLink removes a link administratively and publishes LinkDeleted.
func (uc *ShortenerUsecase) DeleteLink(ctx context.Context, code string) error {
	if err := uc.repo.Delete(ctx, code); err != nil {
		return fmt.Errorf("delete link %q: %w", code, err)
	}

	if uc.events != nil {
		agg := domain.NewDeletedLinkAggregate(code)
		for _, e := range agg.Events() {
			if err := uc.events.Publish(ctx, e); err != nil {
				uc.log.WithContext(ctx).Warnf("failed to publish delete event: %v", err)
			}
		}
		agg.ClearEvents()
	}
	return nil
}

// ShortURL renders the public URL for a code.
func (uc *ShortenerUsecase) ShortURL(code string) string {
	if uc.baseURL == "" {
		return "/" + code
	}
	return uc.baseURL + "/" + code
}

func (uc *ShortenerUsecase) assignCode(ctx context.Context, custom *string) (string, error) {
	if custom != nil {
		if err := uc.rules.Validate(*custom); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidCode, err)
		}
		taken, err := uc.repo.CodeExists(ctx, *custom)
		if err != nil {
			return "", fmt.Errorf("code existence check: %w", err)
		}
		if taken {
			return "", domain.ErrCodeExists
		}
		return *custom, nil
	}

	id, err := uc.repo.NextLinkID(ctx)
	if err != nil {
		return "", fmt.Errorf("reserve link id: %w", err)
	}
	return uc.generator.Generate(ctx, uint64(id), uc.repo.CodeExists)
}

func validateOriginalURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: original url is required", domain.ErrInvalidArgument)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("%w: malformed original url", domain.ErrInvalidArgument)
	}
	return nil
}
