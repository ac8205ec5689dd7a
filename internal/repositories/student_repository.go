package repositories

import (
	"errors"
	"time"

	"mentorhub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrStudentNotFound      = errors.New("student not found")
	ErrStudentAlreadyExists = errors.New("student already exists")
)

// StudentRepository определяет интерфейс для операций со Student-коллекцией
type StudentRepository interface {
	Create(db *gorm.DB, student *models.Student) error
	FindByID(db *gorm.DB, id string) (*models.Student, error)
	FindByEmail(db *gorm.DB, email string) (*models.Student, error)
	FindByIDs(db *gorm.DB, ids []string) ([]models.Student, error)
	FindByAdvisor(db *gorm.DB, advisorID string) ([]models.Student, error)
	FindActive(db *gorm.DB) ([]models.Student, error)
	Update(db *gorm.DB, student *models.Student) error
	AssignAdvisor(db *gorm.DB, studentID string, advisorID *string) error
	UpdatePassword(db *gorm.DB, studentID, passwordHash string) error
	SetResetToken(db *gorm.DB, studentID, token string, expiresAt time.Time) error
	FindByResetToken(db *gorm.DB, token string) (*models.Student, error)
	ClearResetToken(db *gorm.DB, studentID string) error
	SetPushEnabled(db *gorm.DB, studentID string, enabled bool) error
	SetActive(db *gorm.DB, studentID string, active bool) error
}

type studentRepository struct {
}

// NewStudentRepository создает новый экземпляр StudentRepository
func NewStudentRepository() StudentRepository {
	return &studentRepository{}
}

func (r *studentRepository) Create(db *gorm.DB, student *models.Student) error {
	var existing models.Student
	if err := db.Where("email = ?", student.Email).First(&existing).Error; err == nil {
		return ErrStudentAlreadyExists
	}
	return db.Create(student).Error
}

func (r *studentRepository) FindByID(db *gorm.DB, id string) (*models.Student, error) {
	var student models.Student
	if err := db.First(&student, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) FindByEmail(db *gorm.DB, email string) (*models.Student, error) {
	var student models.Student
	if err := db.First(&student, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) FindByIDs(db *gorm.DB, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var students []models.Student
	err := db.Where("id IN ?", ids).Find(&students).Error
	return students, err
}

func (r *studentRepository) FindByAdvisor(db *gorm.DB, advisorID string) ([]models.Student, error) {
	var students []models.Student
	err := db.Where("advisor_id = ? AND is_active = ?", advisorID, true).
		Order("display_name ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepository) FindActive(db *gorm.DB) ([]models.Student, error) {
	var students []models.Student
	err := db.Where("is_active = ?", true).
		Order("display_name ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepository) Update(db *gorm.DB, student *models.Student) error {
	result := db.Model(student).Updates(map[string]interface{}{
		"display_name": student.DisplayName,
		"is_active":    student.IsActive,
		"updated_at":   time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *studentRepository) AssignAdvisor(db *gorm.DB, studentID string, advisorID *string) error {
	result := db.Model(&models.Student{}).Where("id = ?", studentID).
		Update("advisor_id", advisorID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *studentRepository) UpdatePassword(db *gorm.DB, studentID, passwordHash string) error {
	result := db.Model(&models.Student{}).Where("id = ?", studentID).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *studentRepository) SetResetToken(db *gorm.DB, studentID, token string, expiresAt time.Time) error {
	result := db.Model(&models.Student{}).Where("id = ?", studentID).Updates(map[string]interface{}{
		"reset_token":     token,
		"reset_token_exp": expiresAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *studentRepository) FindByResetToken(db *gorm.DB, token string) (*models.Student, error) {
	var student models.Student
	if err := db.First(&student, "reset_token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) ClearResetToken(db *gorm.DB, studentID string) error {
	return db.Model(&models.Student{}).Where("id = ?", studentID).Updates(map[string]interface{}{
		"reset_token":     "",
		"reset_token_exp": nil,
	}).Error
}

func (r *studentRepository) SetPushEnabled(db *gorm.DB, studentID string, enabled bool) error {
	result := db.Model(&models.Student{}).Where("id = ?", studentID).
		Update("push_enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *studentRepository) SetActive(db *gorm.DB, studentID string, active bool) error {
	result := db.Model(&models.Student{}).Where("id = ?", studentID).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}
