package service

import (
	"context"
	"time"

	"shortlink/internal/biz"
	"shortlink/internal/domain"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
)

// CreateLinkRequest is the JSON body of a shortening request.
type CreateLinkRequest struct {
	OriginalURL string     `json:"original_url"`
	CustomCode  *string    `json:"custom_code,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClickLimit  *int64     `json:"click_limit,omitempty"`
	Password    string     `json:"password,omitempty"`
}

// UpdateLinkRequest mutates an existing link. Every field is optional;
// absent fields keep their current value.
type UpdateLinkRequest struct {
	NewCode     *string    `json:"new_code,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClearExpiry bool       `json:"clear_expiry,omitempty"`
}

// LinkInfo is the public representation of a short link.
type LinkInfo struct {
	Code             string     `json:"code"`
	ShortURL         string     `json:"short_url"`
	OriginalURL      string     `json:"original_url"`
	IsActive         bool       `json:"is_active"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	ClickLimit       int64      `json:"click_limit"`
	TotalClicks      int64      `json:"total_clicks"`
	PasswordRequired bool       `json:"password_required"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ListLinksReply is one page of links plus the total count.
type ListLinksReply struct {
	Links []*LinkInfo `json:"links"`
	Total int64       `json:"total"`
}

// ShortenerService exposes link administration to the transport layer.
type ShortenerService struct {
	uc *biz.ShortenerUsecase
}

// NewShortenerService creates a ShortenerService.
func NewShortenerService(uc *biz.ShortenerUsecase) *ShortenerService {
	return &ShortenerService{uc: uc}
}

// CreateLink accepts a shortening request, hashing the optional password
// before it reaches the domain.
func (s *ShortenerService) CreateLink(ctx context.Context, req *CreateLinkRequest) (*LinkInfo, error) {
	var passwordHash string
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, kerrors.InternalServer("PASSWORD_HASH", "failed to hash password")
		}
		passwordHash = string(hash)
	}

	link, err := s.uc.CreateLink(ctx, biz.CreateLinkParams{
		OriginalURL:  req.OriginalURL,
		CustomCode:   req.CustomCode,
		ExpiresAt:    req.ExpiresAt,
		ClickLimit:   req.ClickLimit,
		PasswordHash: passwordHash,
		Owner:        domain.Owner{Type: domain.OwnerUser},
	})
	if err != nil {
		return nil, toServiceError(err)
	}
	return s.toLinkInfo(link), nil
}

// GetLink returns one link by code.
func (s *ShortenerService) GetLink(ctx context.Context, code string) (*LinkInfo, error) {
	link, err := s.uc.GetLink(ctx, code)
	if err != nil {
		return nil, toServiceError(err)
	}
	return s.toLinkInfo(link), nil
}

// ListLinks pages through links, newest first.
func (s *ShortenerService) ListLinks(ctx context.Context, page, pageSize int) (*ListLinksReply, error) {
	links, total, err := s.uc.ListLinks(ctx, page, pageSize)
	if err != nil {
		return nil, toServiceError(err)
	}
	return &ListLinksReply{
		Links: lo.Map(links, func(l *domain.ShortLink, _ int) *LinkInfo { return s.toLinkInfo(l) }),
		Total: total,
	}, nil
}

// UpdateLink applies the requested mutations in order: code change,
// active toggle, expiry.
func (s *ShortenerService) UpdateLink(ctx context.Context, code string, req *UpdateLinkRequest) (*LinkInfo, error) {
	var (
		link *domain.ShortLink
		err  error
	)

	current := code
	if req.NewCode != nil {
		link, err = s.uc.UpdateCode(ctx, current, *req.NewCode)
		if err != nil {
			return nil, toServiceError(err)
		}
		current = *req.NewCode
	}
	if req.IsActive != nil {
		link, err = s.uc.SetActive(ctx, current, *req.IsActive)
		if err != nil {
			return nil, toServiceError(err)
		}
	}
	if req.ExpiresAt != nil || req.ClearExpiry {
		expiry := req.ExpiresAt
		if req.ClearExpiry {
			expiry = nil
		}
		link, err = s.uc.SetExpiry(ctx, current, expiry)
		if err != nil {
			return nil, toServiceError(err)
		}
	}

	if link == nil {
		link, err = s.uc.GetLink(ctx, current)
		if err != nil {
			return nil, toServiceError(err)
		}
	}
	return s.toLinkInfo(link), nil
}

// DeleteLink removes a link.
func (s *ShortenerService) DeleteLink(ctx context.Context, code string) error {
	if err := s.uc.DeleteLink(ctx, code); err != nil {
		return toServiceError(err)
	}
	return nil
}

func (s *ShortenerService) toLinkInfo(link *domain.ShortLink) *LinkInfo {
	return &LinkInfo{
		Code:             link.Code(),
		ShortURL:         s.uc.ShortURL(link.Code()),
		OriginalURL:      link.OriginalURL(),
		IsActive:         link.IsActive(),
		ExpiresAt:        link.ExpiresAt(),
		ClickLimit:       link.ClickLimit(),
		TotalClicks:      link.TotalClicks(),
		PasswordRequired: link.IsPasswordProtected(),
		CreatedAt:        link.CreatedAt(),
		UpdatedAt:        link.UpdatedAt(),
	}
}
