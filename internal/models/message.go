package models

import "time"

// Message - сообщение в одном из двух пространств тредов:
// диалоге (ConversationID) или ревью-сессии (ReviewSessionID).
// Заполнено ровно одно из двух полей. После создания меняются
// только read-статус и флаг мягкого удаления.
type Message struct {
	BaseModel
	ConversationID  *string       `gorm:"type:uuid;index" json:"conversationId,omitempty"`
	ReviewSessionID *string       `gorm:"type:uuid;index" json:"reviewSessionId,omitempty"`
	SenderID        string        `gorm:"type:uuid;not null;index" json:"senderId"`
	SenderTag       CollectionTag `gorm:"type:varchar(10);not null" json:"senderTag"`
	Content         string        `gorm:"type:text;not null" json:"content"`
	MessageType     MessageType   `gorm:"type:varchar(10);default:'text'" json:"messageType"`
	IsRead          bool          `gorm:"default:false" json:"isRead"`
	ReadAt          *time.Time    `json:"readAt,omitempty"`
	IsDeleted       bool          `gorm:"default:false" json:"isDeleted"`
}

// ThreadID возвращает id треда, которому принадлежит сообщение.
func (m *Message) ThreadID() string {
	if m.ConversationID != nil {
		return *m.ConversationID
	}
	if m.ReviewSessionID != nil {
		return *m.ReviewSessionID
	}
	return ""
}
