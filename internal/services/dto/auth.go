package dto

import (
	"mentorhub_backend/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	Identity     *IdentityResponse `json:"identity"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// IdentityResponse - проекция идентичности для клиента
type IdentityResponse struct {
	ID            string               `json:"id"`
	Email         string               `json:"email,omitempty"`
	DisplayName   string               `json:"displayName"`
	Role          models.UserRole      `json:"role"`
	CollectionTag models.CollectionTag `json:"collectionTag"`
	PushEnabled   bool                 `json:"pushEnabled"`
}

func IdentityResponseFrom(identity *models.Identity) *IdentityResponse {
	return &IdentityResponse{
		ID:            identity.ID,
		DisplayName:   identity.DisplayName,
		Role:          identity.Role,
		CollectionTag: identity.Tag,
		PushEnabled:   identity.PushEnabled,
	}
}
