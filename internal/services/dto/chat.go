package dto

import (
	"time"

	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/repositories"
)

type StartConversationRequest struct {
	RecipientID string `json:"recipientId" validate:"required,uuid"`
}

type SendMessageRequest struct {
	Content     string             `json:"content" validate:"required,max=5000"`
	MessageType models.MessageType `json:"messageType" validate:"omitempty,is-message-type"`
}

type MuteRequest struct {
	Muted bool `json:"muted"`
}

// PeerResponse - второй участник диалога глазами вызывающего
type PeerResponse struct {
	ID            string               `json:"id"`
	DisplayName   string               `json:"displayName"`
	Role          models.UserRole      `json:"role"`
	CollectionTag models.CollectionTag `json:"collectionTag"`
	IsOnline      bool                 `json:"isOnline"`
}

type ConversationResponse struct {
	ID                 string                 `json:"id"`
	ParticipantIDs     []string               `json:"participantIds"`
	ParticipantTags    []models.CollectionTag `json:"participantTags"`
	ParticipantRoles   []models.UserRole      `json:"participantRoles"`
	LastMessagePreview string                 `json:"lastMessagePreview"`
	LastMessageAt      *time.Time             `json:"lastMessageAt,omitempty"`
	UnreadCount        int                    `json:"unreadCount"`
	IsMuted            bool                   `json:"isMuted"`
	IsActive           bool                   `json:"isActive"`
	CreatedBy          string                 `json:"createdBy"`
	Peer               *PeerResponse          `json:"peer,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

type MessageResponse struct {
	ID              string               `json:"id"`
	ConversationID  *string              `json:"conversationId,omitempty"`
	ReviewSessionID *string              `json:"reviewSessionId,omitempty"`
	SenderID        string               `json:"senderId"`
	SenderTag       models.CollectionTag `json:"senderTag"`
	SenderName      string               `json:"senderName,omitempty"`
	Content         string               `json:"content"`
	MessageType     models.MessageType   `json:"messageType"`
	IsRead          bool                 `json:"isRead"`
	ReadAt          *time.Time           `json:"readAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// MessageListResponse - страница сообщений в хронологическом порядке
// (старые первыми), total относится ко всему треду
type MessageListResponse struct {
	Messages []*MessageResponse `json:"messages"`
	Total    int64              `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
	HasMore  bool               `json:"hasMore"`
}

type ConversationListResponse struct {
	Conversations []*ConversationResponse `json:"conversations"`
	Total         int                     `json:"total"`
}

// MarkReadResponse сообщает, сколько сообщений было помечено прочитанными
type MarkReadResponse struct {
	ConversationID string `json:"conversationId"`
	MarkedCount    int64  `json:"markedCount"`
}

func MessageResponseFrom(m *models.Message) *MessageResponse {
	return &MessageResponse{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		ReviewSessionID: m.ReviewSessionID,
		SenderID:        m.SenderID,
		SenderTag:       m.SenderTag,
		Content:         m.Content,
		MessageType:     m.MessageType,
		IsRead:          m.IsRead,
		ReadAt:          m.ReadAt,
		CreatedAt:       m.CreatedAt,
	}
}

// Re-export repository types
type MessageCriteria = repositories.MessageCriteria
