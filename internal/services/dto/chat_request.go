package dto

import (
	"time"

	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/repositories"
)

type CreateChatRequestRequest struct {
	ReviewerID string `json:"reviewerId" validate:"required,uuid"`
	Reason     string `json:"reason" validate:"omitempty,max=500"`
}

type RejectChatRequestRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type ChatRequestResponse struct {
	ID              string                   `json:"id"`
	StudentID       string                   `json:"studentId"`
	StudentName     string                   `json:"studentName,omitempty"`
	ReviewerID      string                   `json:"reviewerId"`
	ReviewerName    string                   `json:"reviewerName,omitempty"`
	AdvisorID       string                   `json:"advisorId"`
	Status          models.ChatRequestStatus `json:"status"`
	Reason          string                   `json:"reason,omitempty"`
	RejectionReason string                   `json:"rejectionReason,omitempty"`
	RespondedAt     *time.Time               `json:"respondedAt,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
}

type ChatRequestListResponse struct {
	Requests []*ChatRequestResponse `json:"requests"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"pageSize"`
}

func ChatRequestResponseFrom(r *models.ChatRequest) *ChatRequestResponse {
	resp := &ChatRequestResponse{
		ID:              r.ID,
		StudentID:       r.StudentID,
		ReviewerID:      r.ReviewerID,
		AdvisorID:       r.AdvisorID,
		Status:          r.Status,
		Reason:          r.Reason,
		RejectionReason: r.RejectionReason,
		RespondedAt:     r.RespondedAt,
		CreatedAt:       r.CreatedAt,
	}
	if r.Student != nil {
		resp.StudentName = r.Student.DisplayName
	}
	if r.Reviewer != nil {
		resp.ReviewerName = r.Reviewer.DisplayName
	}
	return resp
}

// Re-export repository types
type ChatRequestCriteria = repositories.ChatRequestCriteria
