package dto

import (
	"time"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	StaffID    string `json:"staff_id"`
	AccessCode string `json:"access_code"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StaffResponse describes a roster member.
type StaffResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Role        string            `json:"role"`
	Department  string            `json:"department"`
	Specialties []domain.Category `json:"specialties"`
	Active      bool              `json:"active"`
}
