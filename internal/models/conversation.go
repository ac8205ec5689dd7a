package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Conversation - двухсторонний диалог. Участники хранятся в порядке
// создания (A - инициатор вызова StartOrGet); теги и роли спарены с
// id по позиции. Диалог уникален для неупорядоченной пары участников.
type Conversation struct {
	BaseModel
	ParticipantAID   string        `gorm:"type:uuid;not null;index:idx_conversations_pair" json:"-"`
	ParticipantBID   string        `gorm:"type:uuid;not null;index:idx_conversations_pair" json:"-"`
	ParticipantATag  CollectionTag `gorm:"type:varchar(10);not null" json:"-"`
	ParticipantBTag  CollectionTag `gorm:"type:varchar(10);not null" json:"-"`
	ParticipantARole UserRole      `gorm:"type:varchar(20);not null" json:"-"`
	ParticipantBRole UserRole      `gorm:"type:varchar(20);not null" json:"-"`

	LastMessagePreview string            `gorm:"type:varchar(120)" json:"lastMessagePreview"`
	LastMessageAt      *time.Time        `json:"lastMessageAt"`
	UnreadCounts       datatypes.JSONMap `gorm:"type:jsonb;column:unread_count_by_participant" json:"unreadCountByParticipant"`
	MutedBy            datatypes.JSON    `gorm:"type:jsonb" json:"mutedBy"`
	IsActive           bool              `gorm:"default:true;index" json:"isActive"`
	CreatedBy          string            `gorm:"type:uuid;not null" json:"createdBy"`
}

// ParticipantIDs возвращает пару участников в стабильном порядке.
func (c *Conversation) ParticipantIDs() [2]string {
	return [2]string{c.ParticipantAID, c.ParticipantBID}
}

// ParticipantTags возвращает теги коллекций, спаренные с ParticipantIDs по индексу.
func (c *Conversation) ParticipantTags() [2]CollectionTag {
	return [2]CollectionTag{c.ParticipantATag, c.ParticipantBTag}
}

// ParticipantRoles возвращает роли, спаренные с ParticipantIDs по индексу.
func (c *Conversation) ParticipantRoles() [2]UserRole {
	return [2]UserRole{c.ParticipantARole, c.ParticipantBRole}
}

// HasParticipant проверяет участие идентичности в диалоге.
func (c *Conversation) HasParticipant(identityID string) bool {
	return c.ParticipantAID == identityID || c.ParticipantBID == identityID
}

// OtherParticipant возвращает id, тег и роль второго участника.
func (c *Conversation) OtherParticipant(identityID string) (string, CollectionTag, UserRole, bool) {
	switch identityID {
	case c.ParticipantAID:
		return c.ParticipantBID, c.ParticipantBTag, c.ParticipantBRole, true
	case c.ParticipantBID:
		return c.ParticipantAID, c.ParticipantATag, c.ParticipantARole, true
	}
	return "", "", "", false
}

// UnreadFor возвращает счетчик непрочитанного для участника.
// Значения из jsonb приходят как float64.
func (c *Conversation) UnreadFor(identityID string) int {
	if c.UnreadCounts == nil {
		return 0
	}
	switch v := c.UnreadCounts[identityID].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// IsMutedBy проверяет, замьютил ли участник этот диалог.
func (c *Conversation) IsMutedBy(identityID string) bool {
	for _, id := range c.MutedList() {
		if id == identityID {
			return true
		}
	}
	return false
}

// MutedList возвращает идентификаторы участников, замьютивших диалог.
func (c *Conversation) MutedList() []string {
	if len(c.MutedBy) == 0 {
		return nil
	}
	ids, err := decodeStringArray(c.MutedBy)
	if err != nil {
		return nil
	}
	return ids
}

func decodeStringArray(raw datatypes.JSON) ([]string, error) {
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
