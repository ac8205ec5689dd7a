package repositories

import (
	"errors"
	"time"

	"mentorhub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository определяет интерфейс для операций со staff-аккаунтами (Account-коллекция)
type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	FindByID(db *gorm.DB, id string) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	FindByIDs(db *gorm.DB, ids []string) ([]models.User, error)
	FindByRole(db *gorm.DB, role models.UserRole) ([]models.User, error)
	FindActive(db *gorm.DB) ([]models.User, error)
	Update(db *gorm.DB, user *models.User) error
	UpdatePassword(db *gorm.DB, userID, passwordHash string) error
	SetResetToken(db *gorm.DB, userID, token string, expiresAt time.Time) error
	FindByResetToken(db *gorm.DB, token string) (*models.User, error)
	ClearResetToken(db *gorm.DB, userID string) error
	SetPushEnabled(db *gorm.DB, userID string, enabled bool) error
	SetActive(db *gorm.DB, userID string, active bool) error
	CountByRole(db *gorm.DB, role models.UserRole) (int64, error)
}

type userRepository struct {
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository() UserRepository {
	return &userRepository{}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	var existing models.User
	if err := db.Where("email = ?", user.Email).First(&existing).Error; err == nil {
		return ErrUserAlreadyExists
	}
	return db.Create(user).Error
}

func (r *userRepository) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(db *gorm.DB, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *userRepository) FindByRole(db *gorm.DB, role models.UserRole) ([]models.User, error) {
	var users []models.User
	err := db.Where("role = ? AND is_active = ?", role, true).
		Order("display_name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) FindActive(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	err := db.Where("is_active = ?", true).
		Order("display_name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) Update(db *gorm.DB, user *models.User) error {
	result := db.Model(user).Updates(map[string]interface{}{
		"display_name": user.DisplayName,
		"is_active":    user.IsActive,
		"updated_at":   time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdatePassword(db *gorm.DB, userID, passwordHash string) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetResetToken(db *gorm.DB, userID, token string, expiresAt time.Time) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"reset_token":     token,
		"reset_token_exp": expiresAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) FindByResetToken(db *gorm.DB, token string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "reset_token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ClearResetToken(db *gorm.DB, userID string) error {
	return db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"reset_token":     "",
		"reset_token_exp": nil,
	}).Error
}

func (r *userRepository) SetPushEnabled(db *gorm.DB, userID string, enabled bool) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).
		Update("push_enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetActive(db *gorm.DB, userID string, active bool) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) CountByRole(db *gorm.DB, role models.UserRole) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}
