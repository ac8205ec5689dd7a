package repositories

import (
	"errors"
	"time"

	"mentorhub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationCriteria описывает параметры выборки уведомлений получателя
type NotificationCriteria struct {
	UnreadOnly bool   `form:"unread_only"`
	Type       string `form:"type"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// NotificationRepository определяет интерфейс для операций с уведомлениями
type NotificationRepository interface {
	Create(db *gorm.DB, notification *models.Notification) error
	CreateBulk(db *gorm.DB, notifications []*models.Notification) error
	FindByID(db *gorm.DB, id string) (*models.Notification, error)

	// ExistsRecent проверяет наличие уведомления с тем же ключом
	// (получатель, тип, сущность) не старше since. Используется для дедупликации.
	ExistsRecent(db *gorm.DB, recipientID, notificationType, entityType, entityID string, since time.Time) (bool, error)

	FindForRecipient(db *gorm.DB, recipientID string, criteria NotificationCriteria) ([]models.Notification, int64, error)

	// FindUndelivered возвращает последние недоставленные уведомления получателя,
	// свежие первыми. Непустой types ограничивает выборку перечисленными типами.
	FindUndelivered(db *gorm.DB, recipientID string, types []string, limit int) ([]models.Notification, error)

	MarkDelivered(db *gorm.DB, ids []string) error
	MarkDeliveryFailed(db *gorm.DB, id string) error
	MarkAsRead(db *gorm.DB, id, recipientID string) error
	MarkAllAsRead(db *gorm.DB, recipientID string) error
	GetUnreadCount(db *gorm.DB, recipientID string) (int64, error)
	DeleteRead(db *gorm.DB, recipientID string, olderThan time.Time) error
	CleanOld(db *gorm.DB, days int) error
}

type notificationRepository struct {
}

// NewNotificationRepository создает новый экземпляр NotificationRepository
func NewNotificationRepository() NotificationRepository {
	return &notificationRepository{}
}

func (r *notificationRepository) Create(db *gorm.DB, notification *models.Notification) error {
	return db.Create(notification).Error
}

func (r *notificationRepository) CreateBulk(db *gorm.DB, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return db.CreateInBatches(notifications, 100).Error
}

func (r *notificationRepository) FindByID(db *gorm.DB, id string) (*models.Notification, error) {
	var notification models.Notification
	if err := db.First(&notification, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) ExistsRecent(db *gorm.DB, recipientID, notificationType, entityType, entityID string, since time.Time) (bool, error) {
	var count int64
	err := db.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ? AND entity_type = ? AND entity_id = ? AND created_at >= ?",
			recipientID, notificationType, entityType, entityID, since).
		Count(&count).Error
	return count > 0, err
}

func (r *notificationRepository) FindForRecipient(db *gorm.DB, recipientID string, criteria NotificationCriteria) ([]models.Notification, int64, error) {
	query := db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID)

	if criteria.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if criteria.Type != "" {
		query = query.Where("type = ?", criteria.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := criteria.Page
	if page == 0 {
		page = 1
	}
	pageSize := criteria.PageSize
	if pageSize == 0 {
		pageSize = 20
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *notificationRepository) FindUndelivered(db *gorm.DB, recipientID string, types []string, limit int) ([]models.Notification, error) {
	query := db.Where("recipient_id = ? AND delivery_status IN ?", recipientID,
		[]models.DeliveryStatus{models.DeliveryPending, models.DeliveryFailed})
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) MarkDelivered(db *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return db.Model(&models.Notification{}).Where("id IN ?", ids).
		Update("delivery_status", models.DeliveryDelivered).Error
}

func (r *notificationRepository) MarkDeliveryFailed(db *gorm.DB, id string) error {
	return db.Model(&models.Notification{}).Where("id = ?", id).
		Update("delivery_status", models.DeliveryFailed).Error
}

func (r *notificationRepository) MarkAsRead(db *gorm.DB, id, recipientID string) error {
	result := db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(db *gorm.DB, recipientID string) error {
	return db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error
}

func (r *notificationRepository) GetUnreadCount(db *gorm.DB, recipientID string) (int64, error) {
	var count int64
	err := db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) DeleteRead(db *gorm.DB, recipientID string, olderThan time.Time) error {
	return db.Where("recipient_id = ? AND is_read = ? AND created_at < ?", recipientID, true, olderThan).
		Delete(&models.Notification{}).Error
}

func (r *notificationRepository) CleanOld(db *gorm.DB, days int) error {
	cutoff := time.Now().AddDate(0, 0, -days)
	return db.Where("created_at < ?", cutoff).Delete(&models.Notification{}).Error
}
