package services

import (
	"fmt"
	"strings"
	"time"

	"mentorhub_backend/internal/email"
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/notifier"
	"mentorhub_backend/internal/repositories"
	"mentorhub_backend/internal/services/dto"
	"mentorhub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// ReviewService управляет жизненным циклом ревью-сессий: advisor
// назначает сессию своему студенту и ревьюеру, стороны получают
// уведомления по обоим каналам.
type ReviewService interface {
	Schedule(db *gorm.DB, caller *models.Identity, req *dto.ScheduleReviewRequest) (*dto.ReviewSessionResponse, error)
	Cancel(db *gorm.DB, caller *models.Identity, sessionID string) (*dto.ReviewSessionResponse, error)
	Complete(db *gorm.DB, caller *models.Identity, sessionID string) (*dto.ReviewSessionResponse, error)
	Get(db *gorm.DB, caller *models.Identity, sessionID string) (*dto.ReviewSessionResponse, error)
	List(db *gorm.DB, caller *models.Identity, criteria dto.ReviewSessionCriteria) (*dto.ReviewSessionListResponse, error)
}

type reviewService struct {
	reviewRepo    repositories.ReviewRepository
	studentRepo   repositories.StudentRepository
	userRepo      repositories.UserRepository
	dispatcher    notifier.Dispatcher
	emailProvider email.Provider
}

func NewReviewService(
	reviewRepo repositories.ReviewRepository,
	studentRepo repositories.StudentRepository,
	userRepo repositories.UserRepository,
	dispatcher notifier.Dispatcher,
	emailProvider email.Provider,
) ReviewService {
	return &reviewService{
		reviewRepo:    reviewRepo,
		studentRepo:   studentRepo,
		userRepo:      userRepo,
		dispatcher:    dispatcher,
		emailProvider: emailProvider,
	}
}

func (s *reviewService) Schedule(db *gorm.DB, caller *models.Identity, req *dto.ScheduleReviewRequest) (*dto.ReviewSessionResponse, error) {
	if !req.ScheduledAt.After(time.Now()) {
		return nil, apperrors.ErrInvalidOperation("review", "Scheduled time must be in the future")
	}

	student, err := s.studentRepo.FindByID(db, req.StudentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrStudentNotFound) {
			return nil, apperrors.ErrIdentityNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if caller.Role == models.RoleAdvisor {
		if student.AdvisorID == nil || *student.AdvisorID != caller.ID {
			return nil, apperrors.ErrInvalidOperation("review", "Student is not assigned to this advisor")
		}
	}

	reviewer, err := s.userRepo.FindByID(db, req.ReviewerID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrIdentityNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if reviewer.Role != models.RoleReviewer || !reviewer.IsActive {
		return nil, apperrors.ErrInvalidOperation("review", "Recipient is not an active reviewer")
	}

	session := &models.ReviewSession{
		StudentID:   student.ID,
		ReviewerID:  reviewer.ID,
		AdvisorID:   caller.ID,
		ScheduledAt: req.ScheduledAt,
		Topic:       strings.TrimSpace(req.Topic),
		Status:      models.ReviewScheduled,
	}

	if err := s.reviewRepo.Create(db, session); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.Info("review session scheduled",
		"reviewSessionId", session.ID,
		"studentId", session.StudentID,
		"reviewerId", session.ReviewerID,
		"scheduledAt", session.ScheduledAt,
	)
	s.notifyScheduled(session, student, reviewer)

	resp := dto.ReviewSessionResponseFrom(session)
	resp.StudentName = student.DisplayName
	resp.ReviewerName = reviewer.DisplayName
	return resp, nil
}

func (s *reviewService) notifyScheduled(session *models.ReviewSession, student *models.Student, reviewer *models.User) {
	when := session.ScheduledAt.Format("02.01.2006 15:04")
	message := fmt.Sprintf("Ревью по теме \"%s\" назначено на %s", session.Topic, when)

	recipients := []*models.Identity{
		models.IdentityFromStudent(student),
		models.IdentityFromUser(reviewer),
	}
	for _, recipient := range recipients {
		s.dispatcher.Notify(notifier.Event{
			Recipient:  recipient,
			Type:       models.NotificationTypeReviewScheduled,
			Title:      "Назначено ревью",
			Message:    message,
			Link:       "/reviews/" + session.ID,
			EntityType: "review_session",
			EntityID:   session.ID,
			Priority:   models.PriorityHigh,
			Data: map[string]interface{}{
				"reviewSessionId": session.ID,
				"scheduledAt":     session.ScheduledAt.Format(time.RFC3339),
			},
		})
	}

	go func(studentEmail, studentName, reviewerEmail, reviewerName, topic string, at time.Time) {
		if err := s.emailProvider.SendReviewScheduled(studentEmail, studentName, topic, at); err != nil {
			logger.WithError(err).Warn("failed to send review email to student")
		}
		if err := s.emailProvider.SendReviewScheduled(reviewerEmail, reviewerName, topic, at); err != nil {
			logger.WithError(err).Warn("failed to send review email to reviewer")
		}
	}(student.Email, student.DisplayName, reviewer.Email, reviewer.DisplayName, session.Topic, session.ScheduledAt)
}

func (s *reviewService) Cancel(db *gorm.DB, caller *models.Identity, sessionID string) (*dto.ReviewSessionResponse, error) {
	session, err := s.resolveSession(db, sessionID)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleAdmin && session.AdvisorID != caller.ID {
		return nil, apperrors.ErrReviewAccessDenied
	}

	if err := s.transition(db, session, models.ReviewCancelled); err != nil {
		return nil, err
	}

	logger.Info("review session cancelled", "reviewSessionId", session.ID, "by", caller.ID)
	s.notifyCancelled(session)
	return dto.ReviewSessionResponseFrom(session), nil
}

func (s *reviewService) Complete(db *gorm.DB, caller *models.Identity, sessionID string) (*dto.ReviewSessionResponse, error) {
	session, err := s.resolveSession(db, sessionID)
	if err != nil {
		return nil, err
	}

	allowed := caller.Role == models.RoleAdmin ||
		session.AdvisorID == caller.ID ||
		session.ReviewerID == caller.ID
	if !allowed {
		return nil, apperrors.ErrReviewAccessDenied
	}

	if err := s.transition(db, session, models.ReviewCompleted); err != nil {
		return nil, err
	}

	logger.Info("review session completed", "reviewSessionId", session.ID, "by", caller.ID)
	return dto.ReviewSessionResponseFrom(session), nil
}

// transition применяет CAS-переход scheduled -> status; при неуспехе
// свежее чтение отдает фактический статус в деталях ошибки.
func (s *reviewService) transition(db *gorm.DB, session *models.ReviewSession, status models.ReviewSessionStatus) error {
	rows, err := s.reviewRepo.UpdateStatusIfScheduled(db, session.ID, status)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if rows == 0 {
		if fresh, ferr := s.reviewRepo.FindByID(db, session.ID); ferr == nil {
			return apperrors.ErrReviewSessionResolved.WithDetails(map[string]interface{}{
				"status": fresh.Status,
			})
		}
		return apperrors.ErrReviewSessionResolved
	}
	session.Status = status
	return nil
}

func (s *reviewService) notifyCancelled(session *models.ReviewSession) {
	var recipients []*models.Identity
	if session.Student != nil {
		recipients = append(recipients, models.IdentityFromStudent(session.Student))
	}
	if session.Reviewer != nil {
		recipients = append(recipients, models.IdentityFromUser(session.Reviewer))
	}

	message := fmt.Sprintf("Ревью по теме \"%s\" отменено", session.Topic)
	for _, recipient := range recipients {
		s.dispatcher.Notify(notifier.Event{
			Recipient:  recipient,
			Type:       models.NotificationTypeReviewCancelled,
			Title:      "Ревью отменено",
			Message:    message,
			Link:       "/reviews/" + session.ID,
			EntityType: "review_session",
			EntityID:   session.ID,
			Data: map[string]interface{}{
				"reviewSessionId": session.ID,
			},
		})
	}
}

func (s *reviewService) Get(db *gorm.DB, caller *models.Identity, sessionID string) (*dto.ReviewSessionResponse, error) {
	session, err := s.resolveSession(db, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParty(caller.ID) && caller.Role != models.RoleAdmin {
		return nil, apperrors.ErrReviewAccessDenied
	}
	return dto.ReviewSessionResponseFrom(session), nil
}

func (s *reviewService) List(db *gorm.DB, caller *models.Identity, criteria dto.ReviewSessionCriteria) (*dto.ReviewSessionListResponse, error) {
	sessions, total, err := s.reviewRepo.FindForIdentity(db, caller.ID, criteria)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]*dto.ReviewSessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, dto.ReviewSessionResponseFrom(&sessions[i]))
	}

	page, pageSize := normalizePage(criteria.Page, criteria.PageSize)
	return &dto.ReviewSessionListResponse{
		Sessions: items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *reviewService) resolveSession(db *gorm.DB, sessionID string) (*models.ReviewSession, error) {
	session, err := s.reviewRepo.FindByID(db, sessionID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrReviewSessionNotFound) {
			return nil, apperrors.ErrReviewSessionNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return session, nil
}
