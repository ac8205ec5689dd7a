package repositories

import (
	"errors"
	"time"

	"mentorhub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrDeviceTokenNotFound = errors.New("device token not found")
)

// DeviceTokenRepository определяет интерфейс для операций с push-токенами устройств
type DeviceTokenRepository interface {
	// Upsert регистрирует токен устройства. Существующий токен
	// переподвязывается к новой идентичности.
	Upsert(db *gorm.DB, token *models.DeviceToken) error

	FindForIdentity(db *gorm.DB, identityID string) ([]models.DeviceToken, error)

	// DeleteByToken удаляет токен, отвергнутый push-провайдером
	DeleteByToken(db *gorm.DB, tokenString string) error

	DeleteForIdentity(db *gorm.DB, identityID string) error
}

type deviceTokenRepository struct {
}

// NewDeviceTokenRepository создает новый экземпляр DeviceTokenRepository
func NewDeviceTokenRepository() DeviceTokenRepository {
	return &deviceTokenRepository{}
}

func (r *deviceTokenRepository) Upsert(db *gorm.DB, token *models.DeviceToken) error {
	var existing models.DeviceToken
	if err := db.Where("token = ?", token.Token).First(&existing).Error; err == nil {
		return db.Model(&existing).Updates(map[string]interface{}{
			"identity_id":  token.IdentityID,
			"identity_tag": token.IdentityTag,
			"platform":     token.Platform,
			"updated_at":   time.Now(),
		}).Error
	}
	return db.Create(token).Error
}

func (r *deviceTokenRepository) FindForIdentity(db *gorm.DB, identityID string) ([]models.DeviceToken, error) {
	var tokens []models.DeviceToken
	err := db.Where("identity_id = ?", identityID).Find(&tokens).Error
	return tokens, err
}

func (r *deviceTokenRepository) DeleteByToken(db *gorm.DB, tokenString string) error {
	result := db.Where("token = ?", tokenString).Delete(&models.DeviceToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDeviceTokenNotFound
	}
	return nil
}

func (r *deviceTokenRepository) DeleteForIdentity(db *gorm.DB, identityID string) error {
	return db.Where("identity_id = ?", identityID).Delete(&models.DeviceToken{}).Error
}
