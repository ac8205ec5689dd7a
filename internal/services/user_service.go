package services

import (
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/repositories"
	"mentorhub_backend/internal/services/dto"
	"mentorhub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// UserService - admin-операции над аккаунтами обеих коллекций:
// списки, назначение advisor, деактивация.
type UserService interface {
	ListStaff(db *gorm.DB, role models.UserRole) ([]*dto.StaffResponse, error)

	// ListStudents: advisor видит закрепленных за ним студентов,
	// admin - всех активных.
	ListStudents(db *gorm.DB, caller *models.Identity) ([]*dto.StudentResponse, error)

	GetStaff(db *gorm.DB, userID string) (*dto.StaffResponse, error)
	GetStudent(db *gorm.DB, studentID string) (*dto.StudentResponse, error)

	AssignAdvisor(db *gorm.DB, studentID string, advisorID *string) (*dto.StudentResponse, error)

	// Деактивация гасит и все refresh-токены идентичности.
	SetStaffActive(db *gorm.DB, userID string, active bool) error
	SetStudentActive(db *gorm.DB, studentID string, active bool) error
}

type userService struct {
	userRepo         repositories.UserRepository
	studentRepo      repositories.StudentRepository
	refreshTokenRepo repositories.RefreshTokenRepository
}

func NewUserService(
	userRepo repositories.UserRepository,
	studentRepo repositories.StudentRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
) UserService {
	return &userService{
		userRepo:         userRepo,
		studentRepo:      studentRepo,
		refreshTokenRepo: refreshTokenRepo,
	}
}

func (s *userService) ListStaff(db *gorm.DB, role models.UserRole) ([]*dto.StaffResponse, error) {
	var (
		users []models.User
		err   error
	)
	if role == "" {
		users, err = s.userRepo.FindActive(db)
	} else {
		users, err = s.userRepo.FindByRole(db, role)
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]*dto.StaffResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.StaffResponseFrom(&users[i]))
	}
	return items, nil
}

func (s *userService) ListStudents(db *gorm.DB, caller *models.Identity) ([]*dto.StudentResponse, error) {
	var (
		students []models.Student
		err      error
	)
	switch caller.Role {
	case models.RoleAdvisor:
		students, err = s.studentRepo.FindByAdvisor(db, caller.ID)
	case models.RoleAdmin:
		students, err = s.studentRepo.FindActive(db)
	default:
		return nil, apperrors.ErrInsufficientPermissions
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]*dto.StudentResponse, 0, len(students))
	for i := range students {
		items = append(items, dto.StudentResponseFrom(&students[i]))
	}
	return items, nil
}

func (s *userService) GetStaff(db *gorm.DB, userID string) (*dto.StaffResponse, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrIdentityNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return dto.StaffResponseFrom(user), nil
}

func (s *userService) GetStudent(db *gorm.DB, studentID string) (*dto.StudentResponse, error) {
	student, err := s.studentRepo.FindByID(db, studentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrStudentNotFound) {
			return nil, apperrors.ErrIdentityNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return dto.StudentResponseFrom(student), nil
}

func (s *userService) AssignAdvisor(db *gorm.DB, studentID string, advisorID *string) (*dto.StudentResponse, error) {
	student, err := s.studentRepo.FindByID(db, studentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrStudentNotFound) {
			return nil, apperrors.ErrIdentityNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	if advisorID != nil {
		advisor, err := s.userRepo.FindByID(db, *advisorID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrUserNotFound) {
				return nil, apperrors.ErrInvalidOperation("identity", "Assigned advisor does not exist")
			}
			return nil, apperrors.InternalError(err)
		}
		if advisor.Role != models.RoleAdvisor || !advisor.IsActive {
			return nil, apperrors.ErrInvalidOperation("identity", "Assigned identity is not an active advisor")
		}
	}

	if err := s.studentRepo.AssignAdvisor(db, studentID, advisorID); err != nil {
		return nil, apperrors.InternalError(err)
	}
	student.AdvisorID = advisorID

	advisorLog := "none"
	if advisorID != nil {
		advisorLog = *advisorID
	}
	logger.Info("advisor assignment changed", "studentId", studentID, "advisorId", advisorLog)
	return dto.StudentResponseFrom(student), nil
}

func (s *userService) SetStaffActive(db *gorm.DB, userID string, active bool) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.SetActive(tx, userID, active); err != nil {
			return err
		}
		if !active {
			return s.refreshTokenRepo.RevokeAllForIdentity(tx, userID)
		}
		return nil
	})
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrIdentityNotFound
		}
		return apperrors.InternalError(err)
	}

	logger.Info("staff active flag changed", "userId", userID, "active", active)
	return nil
}

func (s *userService) SetStudentActive(db *gorm.DB, studentID string, active bool) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := s.studentRepo.SetActive(tx, studentID, active); err != nil {
			return err
		}
		if !active {
			return s.refreshTokenRepo.RevokeAllForIdentity(tx, studentID)
		}
		return nil
	})
	if err != nil {
		if apperrors.Is(err, repositories.ErrStudentNotFound) {
			return apperrors.ErrIdentityNotFound
		}
		return apperrors.InternalError(err)
	}

	logger.Info("student active flag changed", "studentId", studentID, "active", active)
	return nil
}
