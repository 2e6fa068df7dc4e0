package service

import (
	"context"

	"shortlink/internal/biz"
	"shortlink/internal/domain"
)

// ResolveRequest carries a redirect request plus the tracking fields the
// delivery layer extracted from the HTTP request.
type ResolveRequest struct {
	Code      string     `json:"code"`
	Password  string     `json:"password,omitempty"`
	IPAddress string     `json:"-"`
	SessionID string     `json:"-"`
	UserAgent string     `json:"-"`
	Referrer  string     `json:"-"`
	UTM       domain.UTM `json:"-"`
}

// ResolveReply is the outcome of a resolve request. PasswordRequired set
// means no target URL is disclosed until verification succeeds.
type ResolveReply struct {
	TargetURL        string `json:"target_url,omitempty"`
	PasswordRequired bool   `json:"password_required,omitempty"`
}

// ResolverService exposes redirect resolution to the transport layer.
type ResolverService struct {
	uc *biz.ResolverUsecase
}

// NewResolverService creates a ResolverService.
func NewResolverService(uc *biz.ResolverUsecase) *ResolverService {
	return &ResolverService{uc: uc}
}

// Resolve resolves a short code for redirection.
func (s *ResolverService) Resolve(ctx context.Context, req *ResolveRequest) (*ResolveReply, error) {
	res, err := s.uc.Resolve(ctx, req.Code, captureOf(req))
	if err != nil {
		return nil, toServiceError(err)
	}
	return &ResolveReply{TargetURL: res.TargetURL, PasswordRequired: res.PasswordRequired}, nil
}

// VerifyPassword resolves a password-protected short code.
func (s *ResolverService) VerifyPassword(ctx context.Context, req *ResolveRequest) (*ResolveReply, error) {
	res, err := s.uc.VerifyPasswordAndResolve(ctx, req.Code, req.Password, captureOf(req))
	if err != nil {
		return nil, toServiceError(err)
	}
	return &ResolveReply{TargetURL: res.TargetURL}, nil
}

func captureOf(req *ResolveRequest) *domain.ClickCapture {
	return &domain.ClickCapture{
		IPAddress: req.IPAddress,
		SessionID: req.SessionID,
		UserAgent: req.UserAgent,
		Referrer:  req.Referrer,
		UTM:       req.UTM,
	}
}
