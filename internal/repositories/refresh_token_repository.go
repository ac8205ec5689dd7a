package repositories

import (
	"errors"
	"time"

	"mentorhub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrRefreshTokenNotFound возвращается, когда refresh-токен не найден в БД
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

// RefreshTokenRepository определяет интерфейс для операций с refresh-токенами
type RefreshTokenRepository interface {
	// Create создает новую запись о refresh-токене
	Create(db *gorm.DB, token *models.RefreshToken) error

	// FindByToken находит refresh-токен по его строковому значению
	FindByToken(db *gorm.DB, tokenString string) (*models.RefreshToken, error)

	// Revoke помечает токен отозванным
	Revoke(db *gorm.DB, tokenString string) error

	// RevokeAllForIdentity отзывает все токены идентичности
	RevokeAllForIdentity(db *gorm.DB, identityID string) error

	// CleanExpired удаляет все истекшие токены
	CleanExpired(db *gorm.DB) error

	// CountForIdentity возвращает количество живых токенов идентичности
	CountForIdentity(db *gorm.DB, identityID string) (int64, error)
}

type refreshTokenRepository struct {
}

// NewRefreshTokenRepository создает новый экземпляр RefreshTokenRepository
func NewRefreshTokenRepository() RefreshTokenRepository {
	return &refreshTokenRepository{}
}

func (r *refreshTokenRepository) Create(db *gorm.DB, token *models.RefreshToken) error {
	return db.Create(token).Error
}

func (r *refreshTokenRepository) FindByToken(db *gorm.DB, tokenString string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := db.Where("token = ?", tokenString).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *refreshTokenRepository) Revoke(db *gorm.DB, tokenString string) error {
	result := db.Model(&models.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", tokenString).
		Update("revoked_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

func (r *refreshTokenRepository) RevokeAllForIdentity(db *gorm.DB, identityID string) error {
	return db.Model(&models.RefreshToken{}).
		Where("identity_id = ? AND revoked_at IS NULL", identityID).
		Update("revoked_at", time.Now()).Error
}

func (r *refreshTokenRepository) CleanExpired(db *gorm.DB) error {
	return db.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{}).Error
}

func (r *refreshTokenRepository) CountForIdentity(db *gorm.DB, identityID string) (int64, error) {
	var count int64
	err := db.Model(&models.RefreshToken{}).
		Where("identity_id = ? AND expires_at > ? AND revoked_at IS NULL", identityID, time.Now()).
		Count(&count).Error
	return count, err
}
