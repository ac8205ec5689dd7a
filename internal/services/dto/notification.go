package dto

import (
	"time"

	"gorm.io/datatypes"

	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/repositories"
)

type BroadcastRequest struct {
	Title          string                      `json:"title" validate:"required,max=200"`
	Message        string                      `json:"message" validate:"required,max=2000"`
	RecipientGroup models.RecipientGroup       `json:"recipientGroup" validate:"required,is-recipient-group"`
	Priority       models.NotificationPriority `json:"priority" validate:"omitempty,is-priority"`
	Link           string                      `json:"link" validate:"omitempty,max=500"`
}

type BroadcastResponse struct {
	RecipientCount int `json:"recipientCount"`
}

type NotificationResponse struct {
	ID         string                      `json:"id"`
	Type       string                      `json:"type"`
	Title      string                      `json:"title"`
	Message    string                      `json:"message"`
	IsRead     bool                        `json:"isRead"`
	ReadAt     *time.Time                  `json:"readAt,omitempty"`
	Link       string                      `json:"link,omitempty"`
	EntityType string                      `json:"entityType,omitempty"`
	EntityID   string                      `json:"entityId,omitempty"`
	Priority   models.NotificationPriority `json:"priority"`
	Data       datatypes.JSON              `json:"data,omitempty"`
	CreatedAt  time.Time                   `json:"createdAt"`
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	Total         int64                   `json:"total"`
	UnreadCount   int64                   `json:"unreadCount"`
	Page          int                     `json:"page"`
	PageSize      int                     `json:"pageSize"`
}

func NotificationResponseFrom(n *models.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:         n.ID,
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		IsRead:     n.IsRead,
		ReadAt:     n.ReadAt,
		Link:       n.Link,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		Priority:   n.Priority,
		Data:       n.Data,
		CreatedAt:  n.CreatedAt,
	}
}

// Re-export repository types
type NotificationCriteria = repositories.NotificationCriteria
