package transport

import (
	"time"

	"github.com/google/uuid"

	"nashcrm_backend/internal/auth/repository"
)

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type CreateManagerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Role     string `json:"role" validate:"required,oneof=admin accountant manager warehouse"`
	Password string `json:"password" validate:"required,min=8"`
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin accountant manager warehouse"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

type ManagerResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func ToManagerResponse(m repository.Manager) ManagerResponse {
	return ManagerResponse{
		ID:        m.ID,
		Email:     m.Email,
		FullName:  m.FullName,
		Role:      m.Role,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}
}

func ToManagerResponses(managers []repository.Manager) []ManagerResponse {
	out := make([]ManagerResponse, 0, len(managers))
	for _, m := range managers {
		out = append(out, ToManagerResponse(m))
	}
	return out
}
