package dto

import (
	"time"

	"mentorhub_backend/internal/models"
)

type RegisterStaffRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	Password    string          `json:"password" validate:"required,min=6"`
	DisplayName string          `json:"displayName" validate:"required,max=100"`
	Role        models.UserRole `json:"role" validate:"required,is-staff-role"`
}

type RegisterStudentRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6"`
	DisplayName string  `json:"displayName" validate:"required,max=100"`
	AdvisorID   *string `json:"advisorId,omitempty" validate:"omitempty,uuid"`
}

type AssignAdvisorRequest struct {
	AdvisorID *string `json:"advisorId" validate:"omitempty,uuid"`
}

// SetActiveRequest - указатель, чтобы отличать явный false от пропущенного поля
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type StaffResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"displayName"`
	Role        models.UserRole `json:"role"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type StudentResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	AdvisorID   *string   `json:"advisorId,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

func StaffResponseFrom(u *models.User) *StaffResponse {
	return &StaffResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}

func StudentResponseFrom(s *models.Student) *StudentResponse {
	return &StudentResponse{
		ID:          s.ID,
		Email:       s.Email,
		DisplayName: s.DisplayName,
		AdvisorID:   s.AdvisorID,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
	}
}
