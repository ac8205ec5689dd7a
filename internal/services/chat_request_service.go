package services

import (
	"fmt"
	"strings"

	"mentorhub_backend/internal/email"
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/notifier"
	"mentorhub_backend/internal/repositories"
	"mentorhub_backend/internal/services/dto"
	"mentorhub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// ChatRequestService реализует approval-workflow для пары reviewer-student:
// студент подает запрос, закрепленный advisor одобряет или отклоняет.
// Разрешение конкурентных ответов отдано атомарному CAS-апдейту статуса.
type ChatRequestService interface {
	Create(db *gorm.DB, caller *models.Identity, req *dto.CreateChatRequestRequest) (*dto.ChatRequestResponse, error)
	Approve(db *gorm.DB, caller *models.Identity, requestID string) (*dto.ChatRequestResponse, error)
	Reject(db *gorm.DB, caller *models.Identity, requestID string, req *dto.RejectChatRequestRequest) (*dto.ChatRequestResponse, error)
	Get(db *gorm.DB, caller *models.Identity, requestID string) (*dto.ChatRequestResponse, error)

	// List возвращает запросы, видимые вызывающему: advisor видит
	// адресованные ему, студент и ревьюер - свои.
	List(db *gorm.DB, caller *models.Identity, criteria dto.ChatRequestCriteria) (*dto.ChatRequestListResponse, error)
}

type chatRequestService struct {
	chatRequestRepo repositories.ChatRequestRepository
	studentRepo     repositories.StudentRepository
	userRepo        repositories.UserRepository
	dispatcher      notifier.Dispatcher
	emailProvider   email.Provider
}

func NewChatRequestService(
	chatRequestRepo repositories.ChatRequestRepository,
	studentRepo repositories.StudentRepository,
	userRepo repositories.UserRepository,
	dispatcher notifier.Dispatcher,
	emailProvider email.Provider,
) ChatRequestService {
	return &chatRequestService{
		chatRequestRepo: chatRequestRepo,
		studentRepo:     studentRepo,
		userRepo:        userRepo,
		dispatcher:      dispatcher,
		emailProvider:   emailProvider,
	}
}

func (s *chatRequestService) Create(db *gorm.DB, caller *models.Identity, req *dto.CreateChatRequestRequest) (*dto.ChatRequestResponse, error) {
	if caller.Role != models.RoleStudent {
		return nil, apperrors.ErrInsufficientPermissions
	}

	student, err := s.studentRepo.FindByID(db, caller.ID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrStudentNotFound) {
			return nil, apperrors.ErrIdentityNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if student.AdvisorID == nil {
		return nil, apperrors.ErrNoAdvisorAssigned
	}

	reviewer, err := s.userRepo.FindByID(db, req.ReviewerID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrIdentityNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if reviewer.Role != models.RoleReviewer || !reviewer.IsActive {
		return nil, apperrors.ErrInvalidOperation("chat_request", "Recipient is not an active reviewer")
	}

	if _, err := s.chatRequestRepo.FindPendingBetween(db, caller.ID, reviewer.ID); err == nil {
		return nil, apperrors.ErrDuplicateChatRequest
	} else if !apperrors.Is(err, repositories.ErrChatRequestNotFound) {
		return nil, apperrors.InternalError(err)
	}

	approved, err := s.chatRequestRepo.HasApproved(db, caller.ID, reviewer.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if approved {
		return nil, apperrors.ErrDuplicateChatRequest.WithDetails("request already approved")
	}

	request := &models.ChatRequest{
		StudentID:  caller.ID,
		ReviewerID: reviewer.ID,
		AdvisorID:  *student.AdvisorID,
		Status:     models.ChatRequestPending,
		Reason:     strings.TrimSpace(req.Reason),
	}

	if err := s.chatRequestRepo.Create(db, request); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.Info("chat request created",
		"chatRequestId", request.ID,
		"studentId", request.StudentID,
		"reviewerId", request.ReviewerID,
		"advisorId", request.AdvisorID,
	)
	s.notifyAdvisorOfRequest(db, request, caller, reviewer)

	resp := dto.ChatRequestResponseFrom(request)
	resp.StudentName = caller.DisplayName
	resp.ReviewerName = reviewer.DisplayName
	return resp, nil
}

// notifyAdvisorOfRequest шлет advisor durable-уведомление и email о
// запросе, ожидающем решения.
func (s *chatRequestService) notifyAdvisorOfRequest(db *gorm.DB, request *models.ChatRequest, student *models.Identity, reviewer *models.User) {
	advisor, err := s.userRepo.FindByID(db, request.AdvisorID)
	if err != nil {
		logger.Warn("advisor not found for chat request notification",
			"chatRequestId", request.ID, "advisorId", request.AdvisorID)
		return
	}

	s.dispatcher.Notify(notifier.Event{
		Recipient:  models.IdentityFromUser(advisor),
		Sender:     student,
		Type:       models.NotificationTypeChatRequestCreated,
		Title:      "Новый запрос на чат",
		Message:    fmt.Sprintf("%s запрашивает переписку с %s", student.DisplayName, reviewer.DisplayName),
		Link:       "/chat-requests/" + request.ID,
		EntityType: "chat_request",
		EntityID:   request.ID,
		Priority:   models.PriorityHigh,
		Data: map[string]interface{}{
			"chatRequestId": request.ID,
			"studentId":     request.StudentID,
			"reviewerId":    request.ReviewerID,
		},
	})

	go func(to, advisorName, studentName, reviewerName string) {
		if err := s.emailProvider.SendChatRequestPending(to, advisorName, studentName, reviewerName); err != nil {
			logger.WithError(err).Warn("failed to send chat request email")
		}
	}(advisor.Email, advisor.DisplayName, student.DisplayName, reviewer.DisplayName)
}

func (s *chatRequestService) Approve(db *gorm.DB, caller *models.Identity, requestID string) (*dto.ChatRequestResponse, error) {
	return s.respond(db, caller, requestID, models.ChatRequestApproved, "")
}

func (s *chatRequestService) Reject(db *gorm.DB, caller *models.Identity, requestID string, req *dto.RejectChatRequestRequest) (*dto.ChatRequestResponse, error) {
	return s.respond(db, caller, requestID, models.ChatRequestRejected, strings.TrimSpace(req.Reason))
}

// respond атомарно переводит pending-запрос в конечный статус. При
// неуспехе CAS повторное чтение различает: не существует, чужой
// advisor, уже разрешен.
func (s *chatRequestService) respond(db *gorm.DB, caller *models.Identity, requestID string, status models.ChatRequestStatus, reason string) (*dto.ChatRequestResponse, error) {
	rows, err := s.chatRequestRepo.UpdateStatusIfPending(db, requestID, caller.ID, status, reason)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	request, err := s.chatRequestRepo.FindByID(db, requestID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrChatRequestNotFound) {
			return nil, apperrors.ErrChatRequestNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	if rows == 0 {
		if request.AdvisorID != caller.ID {
			return nil, apperrors.ErrChatRequestNotOwned
		}
		return nil, apperrors.ErrChatRequestResolved.WithDetails(map[string]interface{}{
			"status": request.Status,
		})
	}

	logger.Info("chat request resolved",
		"chatRequestId", requestID,
		"status", status,
		"advisorId", caller.ID,
	)
	s.notifyRequestResolved(request)

	return dto.ChatRequestResponseFrom(request), nil
}

// notifyRequestResolved уведомляет студента об исходе; при одобрении
// ревьюер тоже узнает, что студент может ему писать.
func (s *chatRequestService) notifyRequestResolved(request *models.ChatRequest) {
	approved := request.Status == models.ChatRequestApproved

	reviewerName := ""
	if request.Reviewer != nil {
		reviewerName = request.Reviewer.DisplayName
	}

	notificationType := models.NotificationTypeChatRequestRejected
	title := "Запрос на чат отклонен"
	message := fmt.Sprintf("Запрос на переписку с %s отклонен", reviewerName)
	if approved {
		notificationType = models.NotificationTypeChatRequestApproved
		title = "Запрос на чат одобрен"
		message = fmt.Sprintf("Теперь вы можете переписываться с %s", reviewerName)
	} else if request.RejectionReason != "" {
		message = fmt.Sprintf("%s: %s", message, request.RejectionReason)
	}

	data := map[string]interface{}{
		"chatRequestId": request.ID,
		"status":        string(request.Status),
	}

	if request.Student != nil {
		s.dispatcher.Notify(notifier.Event{
			Recipient:  models.IdentityFromStudent(request.Student),
			Type:       notificationType,
			Title:      title,
			Message:    message,
			Link:       "/chat-requests/" + request.ID,
			EntityType: "chat_request",
			EntityID:   request.ID,
			Priority:   models.PriorityHigh,
			Data:       data,
		})
	}

	if approved && request.Reviewer != nil && request.Student != nil {
		s.dispatcher.Notify(notifier.Event{
			Recipient:  models.IdentityFromUser(request.Reviewer),
			Type:       notificationType,
			Title:      "Одобрен чат со студентом",
			Message:    fmt.Sprintf("Студент %s теперь может вам писать", request.Student.DisplayName),
			Link:       "/chat-requests/" + request.ID,
			EntityType: "chat_request",
			EntityID:   request.ID,
			Data:       data,
		})
	}
}

func (s *chatRequestService) Get(db *gorm.DB, caller *models.Identity, requestID string) (*dto.ChatRequestResponse, error) {
	request, err := s.chatRequestRepo.FindByID(db, requestID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrChatRequestNotFound) {
			return nil, apperrors.ErrChatRequestNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	involved := caller.ID == request.StudentID ||
		caller.ID == request.ReviewerID ||
		caller.ID == request.AdvisorID
	if !involved && caller.Role != models.RoleAdmin {
		return nil, apperrors.ErrInsufficientPermissions
	}

	return dto.ChatRequestResponseFrom(request), nil
}

func (s *chatRequestService) List(db *gorm.DB, caller *models.Identity, criteria dto.ChatRequestCriteria) (*dto.ChatRequestListResponse, error) {
	var (
		requests []models.ChatRequest
		total    int64
		err      error
	)

	switch caller.Role {
	case models.RoleAdvisor:
		requests, total, err = s.chatRequestRepo.FindForAdvisor(db, caller.ID, criteria)
	case models.RoleStudent:
		requests, total, err = s.chatRequestRepo.FindForStudent(db, caller.ID, criteria)
	case models.RoleReviewer:
		requests, total, err = s.chatRequestRepo.FindForReviewer(db, caller.ID, criteria)
	default:
		return nil, apperrors.ErrInsufficientPermissions
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]*dto.ChatRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, dto.ChatRequestResponseFrom(&requests[i]))
	}

	page, pageSize := normalizePage(criteria.Page, criteria.PageSize)
	return &dto.ChatRequestListResponse{
		Requests: items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// normalizePage приводит параметры пагинации к дефолтам репозиториев.
func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return page, pageSize
}
