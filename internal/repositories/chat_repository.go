package repositories

import (
	"encoding/json"
	"errors"
	"time"

	"mentorhub_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

// MessageCriteria описывает параметры выборки сообщений треда
type MessageCriteria struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// ChatRepository определяет интерфейс для операций с диалогами и сообщениями
type ChatRepository interface {
	// Conversation operations
	CreateConversation(db *gorm.DB, conv *models.Conversation) error
	FindConversationByID(db *gorm.DB, id string) (*models.Conversation, error)
	FindConversationBetween(db *gorm.DB, firstID, secondID string) (*models.Conversation, error)
	FindIdentityConversations(db *gorm.DB, identityID string) ([]models.Conversation, error)
	UpdateConversationOnMessage(db *gorm.DB, convID, preview string, at time.Time, recipientID string) error
	ResetUnread(db *gorm.DB, convID, identityID string) error
	SetMuted(db *gorm.DB, convID, identityID string, muted bool) error
	SetConversationActive(db *gorm.DB, convID string, active bool) error

	// Message operations
	CreateMessage(db *gorm.DB, message *models.Message) error
	FindMessageByID(db *gorm.DB, id string) (*models.Message, error)
	FindConversationMessages(db *gorm.DB, convID string, criteria MessageCriteria) ([]models.Message, int64, error)
	FindSessionMessages(db *gorm.DB, sessionID string, criteria MessageCriteria) ([]models.Message, int64, error)
	MarkConversationRead(db *gorm.DB, convID, readerID string) (int64, error)
	SoftDeleteMessage(db *gorm.DB, messageID, senderID string) error
}

type chatRepository struct {
}

// NewChatRepository создает новый экземпляр ChatRepository
func NewChatRepository() ChatRepository {
	return &chatRepository{}
}

// Conversation operations

func (r *chatRepository) CreateConversation(db *gorm.DB, conv *models.Conversation) error {
	return db.Create(conv).Error
}

func (r *chatRepository) FindConversationByID(db *gorm.DB, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := db.First(&conv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// FindConversationBetween ищет диалог пары участников независимо от порядка идентификаторов
func (r *chatRepository) FindConversationBetween(db *gorm.DB, firstID, secondID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := db.Where(
		"(participant_a_id = ? AND participant_b_id = ?) OR (participant_a_id = ? AND participant_b_id = ?)",
		firstID, secondID, secondID, firstID,
	).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepository) FindIdentityConversations(db *gorm.DB, identityID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := db.Where(
		"(participant_a_id = ? OR participant_b_id = ?) AND is_active = ?",
		identityID, identityID, true,
	).
		Order("last_message_at DESC NULLS LAST, created_at DESC").
		Find(&convs).Error
	return convs, err
}

// UpdateConversationOnMessage обновляет превью, время последнего сообщения
// и инкрементирует счетчик непрочитанных получателя одним UPDATE
func (r *chatRepository) UpdateConversationOnMessage(db *gorm.DB, convID, preview string, at time.Time, recipientID string) error {
	result := db.Model(&models.Conversation{}).Where("id = ?", convID).Updates(map[string]interface{}{
		"last_message_preview": preview,
		"last_message_at":      at,
		"unread_count_by_participant": gorm.Expr(
			"jsonb_set(COALESCE(unread_count_by_participant, '{}'::jsonb), ARRAY[?]::text[], to_jsonb(COALESCE((unread_count_by_participant->>?)::int, 0) + 1))",
			recipientID, recipientID,
		),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *chatRepository) ResetUnread(db *gorm.DB, convID, identityID string) error {
	result := db.Model(&models.Conversation{}).Where("id = ?", convID).Update(
		"unread_count_by_participant",
		gorm.Expr(
			"jsonb_set(COALESCE(unread_count_by_participant, '{}'::jsonb), ARRAY[?]::text[], to_jsonb(0))",
			identityID,
		),
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *chatRepository) SetMuted(db *gorm.DB, convID, identityID string, muted bool) error {
	conv, err := r.FindConversationByID(db, convID)
	if err != nil {
		return err
	}

	current := conv.MutedList()
	next := make([]string, 0, len(current)+1)
	for _, id := range current {
		if id != identityID {
			next = append(next, id)
		}
	}
	if muted {
		next = append(next, identityID)
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return db.Model(&models.Conversation{}).Where("id = ?", convID).
		Update("muted_by", datatypes.JSON(raw)).Error
}

func (r *chatRepository) SetConversationActive(db *gorm.DB, convID string, active bool) error {
	result := db.Model(&models.Conversation{}).Where("id = ?", convID).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Message operations

func (r *chatRepository) CreateMessage(db *gorm.DB, message *models.Message) error {
	return db.Create(message).Error
}

func (r *chatRepository) FindMessageByID(db *gorm.DB, id string) (*models.Message, error) {
	var message models.Message
	if err := db.First(&message, "id = ? AND is_deleted = ?", id, false).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// FindConversationMessages возвращает страницу сообщений диалога, свежие первыми
func (r *chatRepository) FindConversationMessages(db *gorm.DB, convID string, criteria MessageCriteria) ([]models.Message, int64, error) {
	query := db.Model(&models.Message{}).
		Where("conversation_id = ? AND is_deleted = ?", convID, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := criteria.Limit
	if limit == 0 {
		limit = 50
	}

	var messages []models.Message
	err := query.Order("created_at DESC").
		Limit(limit).Offset(criteria.Offset).
		Find(&messages).Error
	return messages, total, err
}

func (r *chatRepository) FindSessionMessages(db *gorm.DB, sessionID string, criteria MessageCriteria) ([]models.Message, int64, error) {
	query := db.Model(&models.Message{}).
		Where("review_session_id = ? AND is_deleted = ?", sessionID, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := criteria.Limit
	if limit == 0 {
		limit = 50
	}

	var messages []models.Message
	err := query.Order("created_at DESC").
		Limit(limit).Offset(criteria.Offset).
		Find(&messages).Error
	return messages, total, err
}

// MarkConversationRead помечает прочитанными все входящие сообщения читателя
// и возвращает число затронутых строк
func (r *chatRepository) MarkConversationRead(db *gorm.DB, convID, readerID string) (int64, error) {
	result := db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", convID, readerID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *chatRepository) SoftDeleteMessage(db *gorm.DB, messageID, senderID string) error {
	result := db.Model(&models.Message{}).
		Where("id = ? AND sender_id = ?", messageID, senderID).
		Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
