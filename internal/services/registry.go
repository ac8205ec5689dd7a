package services

import (
	"mentorhub_backend/internal/email"
	"mentorhub_backend/pkg/apperrors"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	IdentityService     IdentityService
	AuthService         AuthService
	UserService         UserService
	ChatService         ChatService
	ChatRequestService  ChatRequestService
	NotificationService NotificationService
	ReviewService       ReviewService
	DeviceService       DeviceService
	EmailService        email.Provider
}

// asAppError пропускает AppError из транзакционных замыканий как есть,
// остальное (ошибки savepoint'ов, коммита) оборачивает в InternalError.
func asAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	return apperrors.InternalError(err)
}
