package repositories

import (
	"errors"
	"time"

	"mentorhub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrChatRequestNotFound = errors.New("chat request not found")
)

// ChatRequestCriteria описывает параметры выборки запросов на чат
type ChatRequestCriteria struct {
	Status   models.ChatRequestStatus `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	Page     int                      `form:"page" binding:"omitempty,min=1"`
	PageSize int                      `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ChatRequestRepository определяет интерфейс для операций с запросами reviewer-student чатов
type ChatRequestRepository interface {
	Create(db *gorm.DB, request *models.ChatRequest) error
	FindByID(db *gorm.DB, id string) (*models.ChatRequest, error)
	FindPendingBetween(db *gorm.DB, studentID, reviewerID string) (*models.ChatRequest, error)
	HasApproved(db *gorm.DB, studentID, reviewerID string) (bool, error)
	FindForAdvisor(db *gorm.DB, advisorID string, criteria ChatRequestCriteria) ([]models.ChatRequest, int64, error)
	FindForStudent(db *gorm.DB, studentID string, criteria ChatRequestCriteria) ([]models.ChatRequest, int64, error)
	FindForReviewer(db *gorm.DB, reviewerID string, criteria ChatRequestCriteria) ([]models.ChatRequest, int64, error)

	// UpdateStatusIfPending атомарно переводит pending-запрос в конечный статус.
	// Возвращает число затронутых строк: 0 означает, что запрос не существует,
	// принадлежит другому advisor или уже разрешен - вызывающий различает эти
	// случаи повторным чтением.
	UpdateStatusIfPending(db *gorm.DB, id, advisorID string, status models.ChatRequestStatus, rejectionReason string) (int64, error)
}

type chatRequestRepository struct {
}

// NewChatRequestRepository создает новый экземпляр ChatRequestRepository
func NewChatRequestRepository() ChatRequestRepository {
	return &chatRequestRepository{}
}

func (r *chatRequestRepository) Create(db *gorm.DB, request *models.ChatRequest) error {
	return db.Create(request).Error
}

func (r *chatRequestRepository) FindByID(db *gorm.DB, id string) (*models.ChatRequest, error) {
	var request models.ChatRequest
	err := db.Preload("Student").Preload("Reviewer").Preload("Advisor").
		First(&request, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *chatRequestRepository) FindPendingBetween(db *gorm.DB, studentID, reviewerID string) (*models.ChatRequest, error) {
	var request models.ChatRequest
	err := db.Where(
		"student_id = ? AND reviewer_id = ? AND status = ?",
		studentID, reviewerID, models.ChatRequestPending,
	).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *chatRequestRepository) HasApproved(db *gorm.DB, studentID, reviewerID string) (bool, error) {
	var count int64
	err := db.Model(&models.ChatRequest{}).
		Where("student_id = ? AND reviewer_id = ? AND status = ?",
			studentID, reviewerID, models.ChatRequestApproved).
		Count(&count).Error
	return count > 0, err
}

func (r *chatRequestRepository) FindForAdvisor(db *gorm.DB, advisorID string, criteria ChatRequestCriteria) ([]models.ChatRequest, int64, error) {
	query := db.Model(&models.ChatRequest{}).Where("advisor_id = ?", advisorID)
	return r.findWithCriteria(query, criteria)
}

func (r *chatRequestRepository) FindForStudent(db *gorm.DB, studentID string, criteria ChatRequestCriteria) ([]models.ChatRequest, int64, error) {
	query := db.Model(&models.ChatRequest{}).Where("student_id = ?", studentID)
	return r.findWithCriteria(query, criteria)
}

func (r *chatRequestRepository) FindForReviewer(db *gorm.DB, reviewerID string, criteria ChatRequestCriteria) ([]models.ChatRequest, int64, error) {
	query := db.Model(&models.ChatRequest{}).Where("reviewer_id = ?", reviewerID)
	return r.findWithCriteria(query, criteria)
}

func (r *chatRequestRepository) findWithCriteria(query *gorm.DB, criteria ChatRequestCriteria) ([]models.ChatRequest, int64, error) {
	if criteria.Status != "" {
		query = query.Where("status = ?", criteria.Status)
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

	var requests []models.ChatRequest
	err := query.Preload("Student").Preload("Reviewer").
		Order("created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&requests).Error
	return requests, total, err
}

func (r *chatRequestRepository) UpdateStatusIfPending(db *gorm.DB, id, advisorID string, status models.ChatRequestStatus, rejectionReason string) (int64, error) {
	updates := map[string]interface{}{
		"status":       status,
		"responded_at": time.Now(),
	}
	if rejectionReason != "" {
		updates["rejection_reason"] = rejectionReason
	}

	result := db.Model(&models.ChatRequest{}).
		Where("id = ? AND advisor_id = ? AND status = ?", id, advisorID, models.ChatRequestPending).
		Updates(updates)
	return result.RowsAffected, result.Error
}
