package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"mentorhub_backend/internal/auth"
	"mentorhub_backend/internal/config"
	"mentorhub_backend/internal/email"
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/repositories"
	"mentorhub_backend/internal/services/dto"
	"mentorhub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// Срок жизни токена сброса пароля
const resetTokenTTL = time.Hour

// AuthService покрывает вход, выпуск и ротацию токенов, регистрацию
// и восстановление пароля для обеих коллекций идентичностей.
type AuthService interface {
	Login(db *gorm.DB, req *dto.LoginRequest) (*dto.LoginResponse, error)
	RefreshToken(db *gorm.DB, refreshToken string) (*dto.LoginResponse, error)
	Logout(db *gorm.DB, refreshToken string) error

	RegisterStaff(db *gorm.DB, req *dto.RegisterStaffRequest) (*dto.StaffResponse, error)
	RegisterStudent(db *gorm.DB, req *dto.RegisterStudentRequest) (*dto.StudentResponse, error)

	// RequestPasswordReset создает токен сброса и шлет письмо.
	// Никогда не раскрывает, существует ли email.
	RequestPasswordReset(db *gorm.DB, emailAddr string) error
	ResetPassword(db *gorm.DB, token, newPassword string) error
	ChangePassword(db *gorm.DB, caller *models.Identity, req *dto.ChangePasswordRequest) error

	// SeedAdmin создает первого админа, если в системе нет ни одного.
	SeedAdmin(db *gorm.DB, emailAddr, password, displayName string) error
}

type authService struct {
	userRepo         repositories.UserRepository
	studentRepo      repositories.StudentRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	emailProvider    email.Provider
}

func NewAuthService(
	userRepo repositories.UserRepository,
	studentRepo repositories.StudentRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	emailProvider email.Provider,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		studentRepo:      studentRepo,
		refreshTokenRepo: refreshTokenRepo,
		emailProvider:    emailProvider,
	}
}

func (s *authService) Login(db *gorm.DB, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	identity, passwordHash, active, err := s.lookupByEmail(db, req.Email)
	if err != nil {
		return nil, err
	}
	if !auth.CheckPasswordHash(req.Password, passwordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !active {
		return nil, apperrors.ErrAccountInactive
	}

	resp, err := s.issueTokens(db, identity)
	if err != nil {
		return nil, err
	}
	resp.Identity.Email = req.Email

	logger.Info("identity logged in", "identityId", identity.ID, "role", identity.Role)
	return resp, nil
}

// lookupByEmail пробует обе коллекции: сначала staff-аккаунты, затем
// студентов. Отсутствие в обеих неотличимо от неверного пароля.
func (s *authService) lookupByEmail(db *gorm.DB, emailAddr string) (*models.Identity, string, bool, error) {
	user, err := s.userRepo.FindByEmail(db, emailAddr)
	if err == nil {
		return models.IdentityFromUser(user), user.PasswordHash, user.IsActive, nil
	}
	if !apperrors.Is(err, repositories.ErrUserNotFound) {
		return nil, "", false, apperrors.InternalError(err)
	}

	student, err := s.studentRepo.FindByEmail(db, emailAddr)
	if err == nil {
		return models.IdentityFromStudent(student), student.PasswordHash, student.IsActive, nil
	}
	if !apperrors.Is(err, repositories.ErrStudentNotFound) {
		return nil, "", false, apperrors.InternalError(err)
	}

	return nil, "", false, apperrors.ErrInvalidCredentials
}

func (s *authService) issueTokens(db *gorm.DB, identity *models.Identity) (*dto.LoginResponse, error) {
	accessToken, err := auth.GenerateToken(identity)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	refreshToken, err := generateSecureToken()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	cfg := config.GetConfig()
	record := &models.RefreshToken{
		IdentityID:  identity.ID,
		IdentityTag: identity.Tag,
		Token:       refreshToken,
		ExpiresAt:   time.Now().Add(time.Duration(cfg.JWT.RefreshTTL) * time.Hour),
	}
	if err := s.refreshTokenRepo.Create(db, record); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Identity:     dto.IdentityResponseFrom(identity),
	}, nil
}

func (s *authService) RefreshToken(db *gorm.DB, refreshToken string) (*dto.LoginResponse, error) {
	record, err := s.refreshTokenRepo.FindByToken(db, refreshToken)
	if err != nil {
		if apperrors.Is(err, repositories.ErrRefreshTokenNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.InternalError(err)
	}
	if record.RevokedAt != nil || time.Now().After(record.ExpiresAt) {
		return nil, apperrors.ErrInvalidToken
	}

	identity, emailAddr, active, err := s.resolveByTag(db, record.IdentityID, record.IdentityTag)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperrors.ErrAccountInactive
	}

	// Ротация: старый токен отзывается, новый выпускается атомарно
	var resp *dto.LoginResponse
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.refreshTokenRepo.Revoke(tx, refreshToken); err != nil {
			return err
		}
		issued, err := s.issueTokens(tx, identity)
		if err != nil {
			return err
		}
		resp = issued
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	resp.Identity.Email = emailAddr
	return resp, nil
}

func (s *authService) resolveByTag(db *gorm.DB, identityID string, tag models.CollectionTag) (*models.Identity, string, bool, error) {
	if tag == models.TagAccount {
		user, err := s.userRepo.FindByID(db, identityID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrUserNotFound) {
				return nil, "", false, apperrors.ErrInvalidToken
			}
			return nil, "", false, apperrors.InternalError(err)
		}
		return models.IdentityFromUser(user), user.Email, user.IsActive, nil
	}

	student, err := s.studentRepo.FindByID(db, identityID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrStudentNotFound) {
			return nil, "", false, apperrors.ErrInvalidToken
		}
		return nil, "", false, apperrors.InternalError(err)
	}
	return models.IdentityFromStudent(student), student.Email, student.IsActive, nil
}

func (s *authService) Logout(db *gorm.DB, refreshToken string) error {
	err := s.refreshTokenRepo.Revoke(db, refreshToken)
	if err != nil {
		if apperrors.Is(err, repositories.ErrRefreshTokenNotFound) {
			return apperrors.ErrInvalidToken
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *authService) RegisterStaff(db *gorm.DB, req *dto.RegisterStaffRequest) (*dto.StaffResponse, error) {
	if !auth.ValidStaffRole(req.Role) {
		return nil, apperrors.ErrInvalidOperation("auth", "Invalid staff role")
	}
	if err := s.ensureEmailFree(db, req.Email); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		Role:         req.Role,
		IsActive:     true,
		PushEnabled:  true,
	}

	if err := s.userRepo.Create(db, user); err != nil {
		if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}

	logger.Info("staff account registered", "userId", user.ID, "role", user.Role)
	return dto.StaffResponseFrom(user), nil
}

func (s *authService) RegisterStudent(db *gorm.DB, req *dto.RegisterStudentRequest) (*dto.StudentResponse, error) {
	if err := s.ensureEmailFree(db, req.Email); err != nil {
		return nil, err
	}

	if req.AdvisorID != nil {
		advisor, err := s.userRepo.FindByID(db, *req.AdvisorID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrUserNotFound) {
				return nil, apperrors.ErrInvalidOperation("auth", "Assigned advisor does not exist")
			}
			return nil, apperrors.InternalError(err)
		}
		if advisor.Role != models.RoleAdvisor || !advisor.IsActive {
			return nil, apperrors.ErrInvalidOperation("auth", "Assigned identity is not an active advisor")
		}
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	student := &models.Student{
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		AdvisorID:    req.AdvisorID,
		IsActive:     true,
		PushEnabled:  true,
	}

	if err := s.studentRepo.Create(db, student); err != nil {
		if apperrors.Is(err, repositories.ErrStudentAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}

	logger.Info("student account registered", "studentId", student.ID)
	return dto.StudentResponseFrom(student), nil
}

// ensureEmailFree проверяет email в обеих коллекциях: адрес должен быть
// уникален глобально, иначе вход по email стал бы неоднозначным.
func (s *authService) ensureEmailFree(db *gorm.DB, emailAddr string) error {
	if _, err := s.userRepo.FindByEmail(db, emailAddr); err == nil {
		return apperrors.ErrEmailAlreadyExists
	} else if !apperrors.Is(err, repositories.ErrUserNotFound) {
		return apperrors.InternalError(err)
	}

	if _, err := s.studentRepo.FindByEmail(db, emailAddr); err == nil {
		return apperrors.ErrEmailAlreadyExists
	} else if !apperrors.Is(err, repositories.ErrStudentNotFound) {
		return apperrors.InternalError(err)
	}

	return nil
}

func (s *authService) RequestPasswordReset(db *gorm.DB, emailAddr string) error {
	user, err := s.userRepo.FindByEmail(db, emailAddr)
	if err == nil {
		return s.startReset(db, models.TagAccount, user.ID, user.Email, user.DisplayName)
	}
	if !apperrors.Is(err, repositories.ErrUserNotFound) {
		return apperrors.InternalError(err)
	}

	student, err := s.studentRepo.FindByEmail(db, emailAddr)
	if err == nil {
		return s.startReset(db, models.TagStudent, student.ID, student.Email, student.DisplayName)
	}
	if !apperrors.Is(err, repositories.ErrStudentNotFound) {
		return apperrors.InternalError(err)
	}

	// Неизвестный email: отвечаем так же, как при успехе
	logger.Debug("password reset requested for unknown email")
	return nil
}

func (s *authService) startReset(db *gorm.DB, tag models.CollectionTag, identityID, emailAddr, displayName string) error {
	token, err := generateSecureToken()
	if err != nil {
		return apperrors.InternalError(err)
	}
	expiresAt := time.Now().Add(resetTokenTTL)

	if tag == models.TagAccount {
		err = s.userRepo.SetResetToken(db, identityID, token, expiresAt)
	} else {
		err = s.studentRepo.SetResetToken(db, identityID, token, expiresAt)
	}
	if err != nil {
		return apperrors.InternalError(err)
	}

	go func() {
		if err := s.emailProvider.SendPasswordReset(emailAddr, displayName, resetURLFor(token)); err != nil {
			logger.WithError(err).Warn("failed to send password reset email")
		}
	}()

	logger.Info("password reset token issued", "identityId", identityID)
	return nil
}

func (s *authService) ResetPassword(db *gorm.DB, token, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return apperrors.ErrWeakPassword
	}
	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	user, err := s.userRepo.FindByResetToken(db, token)
	if err == nil {
		if user.ResetTokenExp == nil || time.Now().After(*user.ResetTokenExp) {
			return apperrors.ErrInvalidToken
		}
		return s.applyReset(db, models.TagAccount, user.ID, passwordHash)
	}
	if !apperrors.Is(err, repositories.ErrUserNotFound) {
		return apperrors.InternalError(err)
	}

	student, err := s.studentRepo.FindByResetToken(db, token)
	if err == nil {
		if student.ResetTokenExp == nil || time.Now().After(*student.ResetTokenExp) {
			return apperrors.ErrInvalidToken
		}
		return s.applyReset(db, models.TagStudent, student.ID, passwordHash)
	}
	if !apperrors.Is(err, repositories.ErrStudentNotFound) {
		return apperrors.InternalError(err)
	}

	return apperrors.ErrInvalidToken
}

// applyReset меняет пароль, гасит токен сброса и отзывает все
// refresh-токены идентичности одной транзакцией.
func (s *authService) applyReset(db *gorm.DB, tag models.CollectionTag, identityID, passwordHash string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if tag == models.TagAccount {
			err = s.userRepo.UpdatePassword(tx, identityID, passwordHash)
		} else {
			err = s.studentRepo.UpdatePassword(tx, identityID, passwordHash)
		}
		if err != nil {
			return err
		}

		if tag == models.TagAccount {
			err = s.userRepo.ClearResetToken(tx, identityID)
		} else {
			err = s.studentRepo.ClearResetToken(tx, identityID)
		}
		if err != nil {
			return err
		}

		return s.refreshTokenRepo.RevokeAllForIdentity(tx, identityID)
	})
	if err != nil {
		return apperrors.InternalError(err)
	}

	logger.Info("password reset completed", "identityId", identityID)
	return nil
}

func (s *authService) ChangePassword(db *gorm.DB, caller *models.Identity, req *dto.ChangePasswordRequest) error {
	var currentHash string
	if caller.IsStaff() {
		user, err := s.userRepo.FindByID(db, caller.ID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		currentHash = user.PasswordHash
	} else {
		student, err := s.studentRepo.FindByID(db, caller.ID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		currentHash = student.PasswordHash
	}

	if !auth.CheckPasswordHash(req.CurrentPassword, currentHash) {
		return apperrors.ErrInvalidCredentials
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.ErrWeakPassword
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}
	return s.applyReset(db, caller.Tag, caller.ID, passwordHash)
}

func (s *authService) SeedAdmin(db *gorm.DB, emailAddr, password, displayName string) error {
	if emailAddr == "" || password == "" {
		logger.Debug("admin seed skipped, credentials not configured")
		return nil
	}

	count, err := s.userRepo.CountByRole(db, models.RoleAdmin)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if count > 0 {
		return nil
	}

	if displayName == "" {
		displayName = "Administrator"
	}
	_, err = s.RegisterStaff(db, &dto.RegisterStaffRequest{
		Email:       emailAddr,
		Password:    password,
		DisplayName: displayName,
		Role:        models.RoleAdmin,
	})
	if err != nil {
		return err
	}

	logger.Info("seed admin created", "email", emailAddr)
	return nil
}

// generateSecureToken возвращает криптослучайный hex-токен для refresh
// и reset-потоков.
func generateSecureToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func resetURLFor(token string) string {
	cfg := config.GetConfig()
	base := cfg.Server.Host
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	return fmt.Sprintf("%s/reset-password?token=%s", base, token)
}
