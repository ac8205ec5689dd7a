package dto

import (
	"mentorhub_backend/internal/models"
)

// ContactResponse - идентичность, с которой вызывающий потенциально
// может общаться, с вердиктом разрешения для пары ролей
type ContactResponse struct {
	ID            string               `json:"id"`
	DisplayName   string               `json:"displayName"`
	Role          models.UserRole      `json:"role"`
	CollectionTag models.CollectionTag `json:"collectionTag"`
	IsOnline      bool                 `json:"isOnline"`

	// CanChat: пара ролей разрешена без дополнительных условий
	CanChat bool `json:"canChat"`

	// NeedsApproval: пара reviewer-student, требуется одобренный запрос
	NeedsApproval bool `json:"needsApproval"`

	// HasApproval: одобренный запрос уже существует
	HasApproval bool `json:"hasApproval"`
}

type ContactListResponse struct {
	Contacts []*ContactResponse `json:"contacts"`
}
