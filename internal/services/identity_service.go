package services

import (
	"mentorhub_backend/internal/auth"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/presence"
	"mentorhub_backend/internal/repositories"
	"mentorhub_backend/internal/services/dto"
	"mentorhub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// IdentityService резолвит идентичности из двух коллекций (Account, Student)
// в единую проекцию. Порядок проб фиксирован: сначала staff-аккаунты,
// затем студенты.
type IdentityService interface {
	Resolve(db *gorm.DB, identityID string) (*models.Identity, error)
	ResolveMany(db *gorm.DB, ids []string) (map[string]*models.Identity, error)

	// ResolveTagged резолвит идентичность одним lookup'ом по известному
	// тегу коллекции (из claims токена). Второй результат - активна ли
	// учетная запись.
	ResolveTagged(db *gorm.DB, identityID string, tag models.CollectionTag) (*models.Identity, bool, error)

	// EmailFor возвращает email идентичности для почтового канала
	EmailFor(db *gorm.DB, identity *models.Identity) (string, error)

	// Contacts возвращает идентичности, с которыми вызывающий может
	// общаться, с вердиктом разрешения для каждой пары
	Contacts(db *gorm.DB, viewer *models.Identity) (*dto.ContactListResponse, error)
}

type identityService struct {
	userRepo        repositories.UserRepository
	studentRepo     repositories.StudentRepository
	chatRequestRepo repositories.ChatRequestRepository
	tracker         *presence.Tracker
}

func NewIdentityService(
	userRepo repositories.UserRepository,
	studentRepo repositories.StudentRepository,
	chatRequestRepo repositories.ChatRequestRepository,
	tracker *presence.Tracker,
) IdentityService {
	return &identityService{
		userRepo:        userRepo,
		studentRepo:     studentRepo,
		chatRequestRepo: chatRequestRepo,
		tracker:         tracker,
	}
}

func (s *identityService) Resolve(db *gorm.DB, identityID string) (*models.Identity, error) {
	user, err := s.userRepo.FindByID(db, identityID)
	if err == nil {
		return models.IdentityFromUser(user), nil
	}
	if !apperrors.Is(err, repositories.ErrUserNotFound) {
		return nil, apperrors.InternalError(err)
	}

	student, err := s.studentRepo.FindByID(db, identityID)
	if err == nil {
		return models.IdentityFromStudent(student), nil
	}
	if !apperrors.Is(err, repositories.ErrStudentNotFound) {
		return nil, apperrors.InternalError(err)
	}

	return nil, apperrors.ErrIdentityNotFound
}

func (s *identityService) ResolveTagged(db *gorm.DB, identityID string, tag models.CollectionTag) (*models.Identity, bool, error) {
	switch tag {
	case models.TagAccount:
		user, err := s.userRepo.FindByID(db, identityID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrUserNotFound) {
				return nil, false, apperrors.ErrIdentityNotFound
			}
			return nil, false, apperrors.InternalError(err)
		}
		return models.IdentityFromUser(user), user.IsActive, nil
	case models.TagStudent:
		student, err := s.studentRepo.FindByID(db, identityID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrStudentNotFound) {
				return nil, false, apperrors.ErrIdentityNotFound
			}
			return nil, false, apperrors.InternalError(err)
		}
		return models.IdentityFromStudent(student), student.IsActive, nil
	default:
		return nil, false, apperrors.ErrIdentityNotFound
	}
}

func (s *identityService) ResolveMany(db *gorm.DB, ids []string) (map[string]*models.Identity, error) {
	result := make(map[string]*models.Identity, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	users, err := s.userRepo.FindByIDs(db, ids)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	for i := range users {
		result[users[i].ID] = models.IdentityFromUser(&users[i])
	}

	var missing []string
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		students, err := s.studentRepo.FindByIDs(db, missing)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		for i := range students {
			result[students[i].ID] = models.IdentityFromStudent(&students[i])
		}
	}

	return result, nil
}

func (s *identityService) EmailFor(db *gorm.DB, identity *models.Identity) (string, error) {
	if identity.IsStaff() {
		user, err := s.userRepo.FindByID(db, identity.ID)
		if err != nil {
			return "", err
		}
		return user.Email, nil
	}
	student, err := s.studentRepo.FindByID(db, identity.ID)
	if err != nil {
		return "", err
	}
	return student.Email, nil
}

func (s *identityService) Contacts(db *gorm.DB, viewer *models.Identity) (*dto.ContactListResponse, error) {
	staff, err := s.userRepo.FindActive(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	students, err := s.studentRepo.FindActive(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	candidates := make([]*models.Identity, 0, len(staff)+len(students))
	for i := range staff {
		candidates = append(candidates, models.IdentityFromUser(&staff[i]))
	}
	for i := range students {
		candidates = append(candidates, models.IdentityFromStudent(&students[i]))
	}

	contacts := make([]*dto.ContactResponse, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == viewer.ID {
			continue
		}

		verdict := auth.CheckRolePair(viewer.Role, candidate.Role)
		if verdict == auth.PairDenied {
			continue
		}

		contact := &dto.ContactResponse{
			ID:            candidate.ID,
			DisplayName:   candidate.DisplayName,
			Role:          candidate.Role,
			CollectionTag: candidate.Tag,
			IsOnline:      s.tracker.IsOnline(candidate.ID),
		}

		switch verdict {
		case auth.PairAllowed:
			contact.CanChat = true
		case auth.PairNeedsApproval:
			contact.NeedsApproval = true
			studentID, reviewerID := orientApprovalPair(viewer, candidate)
			approved, err := s.chatRequestRepo.HasApproved(db, studentID, reviewerID)
			if err != nil {
				return nil, apperrors.InternalError(err)
			}
			contact.HasApproval = approved
			contact.CanChat = approved
		}

		contacts = append(contacts, contact)
	}

	return &dto.ContactListResponse{Contacts: contacts}, nil
}

// orientApprovalPair раскладывает пару reviewer-student в порядок
// (studentID, reviewerID) независимо от того, кто смотрит
func orientApprovalPair(a, b *models.Identity) (string, string) {
	if a.Role == models.RoleStudent {
		return a.ID, b.ID
	}
	return b.ID, a.ID
}
