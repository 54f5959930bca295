package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/ai-secretary/internal/auth"
	"github.com/spec-kit/ai-secretary/internal/config"
	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/repository"
	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

// AuthService issues staff bearer tokens against the shared office access code.
type AuthService struct {
	staff          repository.StaffRepository
	tokenMgr       *auth.TokenManager
	accessCodeHash string
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	StaffRepo repository.StaffRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		staff:          deps.StaffRepo,
		tokenMgr:       auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		accessCodeHash: cfg.AccessCodeHash,
	}
}

// LoginStaff authenticates a roster member and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, staffID, accessCode string) (*domain.StaffMember, string, time.Time, error) {
	if strings.TrimSpace(staffID) == "" || accessCode == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("staff_id and access_code are required", nil)
	}
	if s.accessCodeHash == "" {
		return nil, "", time.Time{}, apperrors.NewForbidden("staff login disabled")
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !staff.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("staff inactive")
	}
	if err := auth.CompareAccessCode(s.accessCodeHash, accessCode); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, domain.SubjectTypeStaff, staff.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return staff, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
