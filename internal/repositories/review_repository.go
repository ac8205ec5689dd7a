package repositories

import (
	"errors"
	"time"

	"mentorhub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrReviewSessionNotFound = errors.New("review session not found")
)

// ReviewSessionCriteria описывает параметры выборки ревью-сессий
type ReviewSessionCriteria struct {
	Status   models.ReviewSessionStatus `form:"status" binding:"omitempty,oneof=scheduled completed cancelled"`
	From     time.Time                  `form:"from"`
	To       time.Time                  `form:"to"`
	Page     int                        `form:"page" binding:"omitempty,min=1"`
	PageSize int                        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ReviewRepository определяет интерфейс для операций с ревью-сессиями
type ReviewRepository interface {
	Create(db *gorm.DB, session *models.ReviewSession) error
	FindByID(db *gorm.DB, id string) (*models.ReviewSession, error)
	FindForIdentity(db *gorm.DB, identityID string, criteria ReviewSessionCriteria) ([]models.ReviewSession, int64, error)
	Update(db *gorm.DB, session *models.ReviewSession) error

	// UpdateStatusIfScheduled атомарно переводит scheduled-сессию в конечный
	// статус. Возвращает число затронутых строк.
	UpdateStatusIfScheduled(db *gorm.DB, id string, status models.ReviewSessionStatus) (int64, error)
}

type reviewRepository struct {
}

// NewReviewRepository создает новый экземпляр ReviewRepository
func NewReviewRepository() ReviewRepository {
	return &reviewRepository{}
}

func (r *reviewRepository) Create(db *gorm.DB, session *models.ReviewSession) error {
	return db.Create(session).Error
}

func (r *reviewRepository) FindByID(db *gorm.DB, id string) (*models.ReviewSession, error) {
	var session models.ReviewSession
	err := db.Preload("Student").Preload("Reviewer").
		First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *reviewRepository) FindForIdentity(db *gorm.DB, identityID string, criteria ReviewSessionCriteria) ([]models.ReviewSession, int64, error) {
	query := db.Model(&models.ReviewSession{}).
		Where("student_id = ? OR reviewer_id = ? OR advisor_id = ?", identityID, identityID, identityID)

	if criteria.Status != "" {
		query = query.Where("status = ?", criteria.Status)
	}
	if !criteria.From.IsZero() {
		query = query.Where("scheduled_at >= ?", criteria.From)
	}
	if !criteria.To.IsZero() {
		query = query.Where("scheduled_at <= ?", criteria.To)
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

	var sessions []models.ReviewSession
	err := query.Preload("Student").Preload("Reviewer").
		Order("scheduled_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *reviewRepository) Update(db *gorm.DB, session *models.ReviewSession) error {
	result := db.Model(session).Updates(map[string]interface{}{
		"scheduled_at": session.ScheduledAt,
		"topic":        session.Topic,
		"updated_at":   time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReviewSessionNotFound
	}
	return nil
}

func (r *reviewRepository) UpdateStatusIfScheduled(db *gorm.DB, id string, status models.ReviewSessionStatus) (int64, error) {
	result := db.Model(&models.ReviewSession{}).
		Where("id = ? AND status = ?", id, models.ReviewScheduled).
		Update("status", status)
	return result.RowsAffected, result.Error
}
