package services

import (
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/notifier"
	"mentorhub_backend/internal/repositories"
	"mentorhub_backend/internal/services/dto"
	"mentorhub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// NotificationService отдает durable-уведомления получателю и
// реализует admin-рассылки по группам идентичностей.
type NotificationService interface {
	List(db *gorm.DB, caller *models.Identity, criteria dto.NotificationCriteria) (*dto.NotificationListResponse, error)
	MarkRead(db *gorm.DB, caller *models.Identity, notificationID string) error
	MarkAllRead(db *gorm.DB, caller *models.Identity) error
	UnreadCount(db *gorm.DB, caller *models.Identity) (int64, error)

	// Broadcast создает мастер-запись рассылки и ставит персональное
	// уведомление каждому участнику группы в очередь диспетчера.
	Broadcast(db *gorm.DB, caller *models.Identity, req *dto.BroadcastRequest) (*dto.BroadcastResponse, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
	studentRepo      repositories.StudentRepository
	dispatcher       notifier.Dispatcher
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	studentRepo repositories.StudentRepository,
	dispatcher notifier.Dispatcher,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		studentRepo:      studentRepo,
		dispatcher:       dispatcher,
	}
}

func (s *notificationService) List(db *gorm.DB, caller *models.Identity, criteria dto.NotificationCriteria) (*dto.NotificationListResponse, error) {
	notifications, total, err := s.notificationRepo.FindForRecipient(db, caller.ID, criteria)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	unread, err := s.notificationRepo.GetUnreadCount(db, caller.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, dto.NotificationResponseFrom(&notifications[i]))
	}

	page, pageSize := normalizePage(criteria.Page, criteria.PageSize)
	return &dto.NotificationListResponse{
		Notifications: items,
		Total:         total,
		UnreadCount:   unread,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *notificationService) MarkRead(db *gorm.DB, caller *models.Identity, notificationID string) error {
	err := s.notificationRepo.MarkAsRead(db, notificationID, caller.ID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrNotificationNotFound) {
			return apperrors.ErrNotificationNotFound
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(db *gorm.DB, caller *models.Identity) error {
	if err := s.notificationRepo.MarkAllAsRead(db, caller.ID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *notificationService) UnreadCount(db *gorm.DB, caller *models.Identity) (int64, error) {
	count, err := s.notificationRepo.GetUnreadCount(db, caller.ID)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	return count, nil
}

func (s *notificationService) Broadcast(db *gorm.DB, caller *models.Identity, req *dto.BroadcastRequest) (*dto.BroadcastResponse, error) {
	recipients, err := s.resolveGroup(db, req.RecipientGroup)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	// Мастер-запись для аудита рассылки; персональные записи создаст
	// диспетчер, по одной на получателя
	master := &models.Notification{
		SenderID:       &caller.ID,
		IsBroadcast:    true,
		RecipientGroup: req.RecipientGroup,
		Type:           models.NotificationTypeAnnouncement,
		Title:          req.Title,
		Message:        req.Message,
		Link:           req.Link,
		Priority:       priority,
		DeliveryStatus: models.DeliveryDelivered,
	}
	if err := s.notificationRepo.Create(db, master); err != nil {
		return nil, apperrors.InternalError(err)
	}

	count := 0
	for _, recipient := range recipients {
		if recipient.ID == caller.ID {
			continue
		}
		count++
		s.dispatcher.Notify(notifier.Event{
			Recipient:  recipient,
			Sender:     caller,
			Type:       models.NotificationTypeAnnouncement,
			Title:      req.Title,
			Message:    req.Message,
			Link:       req.Link,
			EntityType: "broadcast",
			EntityID:   master.ID,
			Priority:   priority,
		})
	}

	logger.Info("broadcast dispatched",
		"broadcastId", master.ID,
		"recipientGroup", req.RecipientGroup,
		"recipients", count,
	)
	return &dto.BroadcastResponse{RecipientCount: count}, nil
}

func (s *notificationService) resolveGroup(db *gorm.DB, group models.RecipientGroup) ([]*models.Identity, error) {
	var identities []*models.Identity

	appendStudents := func() error {
		students, err := s.studentRepo.FindActive(db)
		if err != nil {
			return apperrors.InternalError(err)
		}
		for i := range students {
			identities = append(identities, models.IdentityFromStudent(&students[i]))
		}
		return nil
	}
	appendUsers := func(users []models.User) {
		for i := range users {
			identities = append(identities, models.IdentityFromUser(&users[i]))
		}
	}

	switch group {
	case models.GroupStudents:
		if err := appendStudents(); err != nil {
			return nil, err
		}
	case models.GroupAdvisors:
		users, err := s.userRepo.FindByRole(db, models.RoleAdvisor)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		appendUsers(users)
	case models.GroupReviewers:
		users, err := s.userRepo.FindByRole(db, models.RoleReviewer)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		appendUsers(users)
	case models.GroupAll:
		if err := appendStudents(); err != nil {
			return nil, err
		}
		users, err := s.userRepo.FindActive(db)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		appendUsers(users)
	default:
		return nil, apperrors.ErrInvalidOperation("notification", "Unknown recipient group")
	}

	return identities, nil
}
