package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification - durable-уведомление. RecipientID пуст только для
// broadcast-записей (IsBroadcast + RecipientGroup). Контент после
// создания не меняется; мутируют только read-статус и статус доставки.
// Ключ дедупликации: (recipient_id, entity_type, entity_id, type)
// в пределах скользящего окна.
type Notification struct {
	BaseModel
	RecipientID    *string              `gorm:"type:uuid;index:idx_notifications_dedup,priority:1;index" json:"recipientId,omitempty"`
	RecipientTag   CollectionTag        `gorm:"type:varchar(10)" json:"recipientTag,omitempty"`
	SenderID       *string              `gorm:"type:uuid" json:"senderId,omitempty"`
	IsBroadcast    bool                 `gorm:"default:false;index" json:"isBroadcast"`
	RecipientGroup RecipientGroup       `gorm:"type:varchar(20)" json:"recipientGroup,omitempty"`
	Type           string               `gorm:"type:varchar(40);not null;index:idx_notifications_dedup,priority:4" json:"type"`
	Title          string               `gorm:"not null" json:"title"`
	Message        string               `gorm:"type:text" json:"message"`
	IsRead         bool                 `gorm:"default:false" json:"isRead"`
	ReadAt         *time.Time           `json:"readAt,omitempty"`
	Link           string               `json:"link,omitempty"`
	EntityType     string               `gorm:"type:varchar(40);index:idx_notifications_dedup,priority:2" json:"entityType,omitempty"`
	EntityID       string               `gorm:"type:varchar(64);index:idx_notifications_dedup,priority:3" json:"entityId,omitempty"`
	Priority       NotificationPriority `gorm:"type:varchar(10);default:'normal'" json:"priority"`
	DeliveryStatus DeliveryStatus       `gorm:"type:varchar(10);default:'pending';index" json:"deliveryStatus"`
	Data           datatypes.JSON       `gorm:"type:jsonb" json:"data,omitempty"`
}

// HasDedupKey сообщает, есть ли у уведомления корреляция с сущностью,
// по которой применяется дедупликация.
func (n *Notification) HasDedupKey() bool {
	return n.RecipientID != nil && n.EntityType != "" && n.EntityID != ""
}
