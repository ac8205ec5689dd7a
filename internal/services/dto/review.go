package dto

import (
	"time"

	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/repositories"
)

type ScheduleReviewRequest struct {
	StudentID   string    `json:"studentId" validate:"required,uuid"`
	ReviewerID  string    `json:"reviewerId" validate:"required,uuid"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
	Topic       string    `json:"topic" validate:"required,max=200"`
}

type ReviewSessionResponse struct {
	ID           string                     `json:"id"`
	StudentID    string                     `json:"studentId"`
	StudentName  string                     `json:"studentName,omitempty"`
	ReviewerID   string                     `json:"reviewerId"`
	ReviewerName string                     `json:"reviewerName,omitempty"`
	AdvisorID    string                     `json:"advisorId"`
	ScheduledAt  time.Time                  `json:"scheduledAt"`
	Topic        string                     `json:"topic"`
	Status       models.ReviewSessionStatus `json:"status"`
	CreatedAt    time.Time                  `json:"createdAt"`
}

type ReviewSessionListResponse struct {
	Sessions []*ReviewSessionResponse `json:"sessions"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"pageSize"`
}

func ReviewSessionResponseFrom(s *models.ReviewSession) *ReviewSessionResponse {
	resp := &ReviewSessionResponse{
		ID:          s.ID,
		StudentID:   s.StudentID,
		ReviewerID:  s.ReviewerID,
		AdvisorID:   s.AdvisorID,
		ScheduledAt: s.ScheduledAt,
		Topic:       s.Topic,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
	}
	if s.Student != nil {
		resp.StudentName = s.Student.DisplayName
	}
	if s.Reviewer != nil {
		resp.ReviewerName = s.Reviewer.DisplayName
	}
	return resp
}

// Re-export repository types
type ReviewSessionCriteria = repositories.ReviewSessionCriteria
