package services

import (
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/repositories"
	"mentorhub_backend/internal/services/dto"
	"mentorhub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// DeviceService управляет push-токенами устройств и флагом push-подписки
// идентичности.
type DeviceService interface {
	Register(db *gorm.DB, caller *models.Identity, req *dto.RegisterDeviceRequest) error
	Unregister(db *gorm.DB, caller *models.Identity, token string) error
	SetPushEnabled(db *gorm.DB, caller *models.Identity, enabled bool) error
}

type deviceService struct {
	deviceTokenRepo repositories.DeviceTokenRepository
	userRepo        repositories.UserRepository
	studentRepo     repositories.StudentRepository
}

func NewDeviceService(
	deviceTokenRepo repositories.DeviceTokenRepository,
	userRepo repositories.UserRepository,
	studentRepo repositories.StudentRepository,
) DeviceService {
	return &deviceService{
		deviceTokenRepo: deviceTokenRepo,
		userRepo:        userRepo,
		studentRepo:     studentRepo,
	}
}

func (s *deviceService) Register(db *gorm.DB, caller *models.Identity, req *dto.RegisterDeviceRequest) error {
	token := &models.DeviceToken{
		IdentityID:  caller.ID,
		IdentityTag: caller.Tag,
		Token:       req.Token,
		Platform:    req.Platform,
	}
	if err := s.deviceTokenRepo.Upsert(db, token); err != nil {
		return apperrors.InternalError(err)
	}

	logger.Debug("device token registered", "identityId", caller.ID, "platform", req.Platform)
	return nil
}

func (s *deviceService) Unregister(db *gorm.DB, caller *models.Identity, token string) error {
	err := s.deviceTokenRepo.DeleteByToken(db, token)
	if err != nil {
		if apperrors.Is(err, repositories.ErrDeviceTokenNotFound) {
			return apperrors.ErrDeviceTokenNotFound
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *deviceService) SetPushEnabled(db *gorm.DB, caller *models.Identity, enabled bool) error {
	var err error
	if caller.IsStaff() {
		err = s.userRepo.SetPushEnabled(db, caller.ID, enabled)
	} else {
		err = s.studentRepo.SetPushEnabled(db, caller.ID, enabled)
	}
	if err != nil {
		return apperrors.InternalError(err)
	}

	logger.Debug("push enabled flag changed", "identityId", caller.ID, "enabled", enabled)
	return nil
}
