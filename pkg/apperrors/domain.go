package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для доменных ошибок.
Репозитории возвращают свои sentinel-ошибки; сервисы переводят их
в эти AppError перед отдачей наружу.
*/

// =========================================================================
// Фабричные функции
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404)
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidStatus - фабрика для невалидных статусов (400)
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusBadRequest)
}

// =========================================================================
// Auth
// =========================================================================

// ErrInvalidCredentials - неверный email или пароль.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

// ErrInvalidToken - неверный или просроченный токен (access, refresh, reset).
var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// ErrAccountInactive - аккаунт деактивирован.
var ErrAccountInactive = New(
	CodeForbidden,
	"auth",
	"Account is deactivated",
	http.StatusForbidden,
)

// ErrInsufficientPermissions - не хватает прав на операцию.
var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// ErrEmailAlreadyExists - email уже используется.
var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

// ErrWeakPassword - пароль слишком слабый.
var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak. Minimum 6 characters required.",
	http.StatusBadRequest,
)

// =========================================================================
// Identity
// =========================================================================

// ErrIdentityNotFound - идентичность не найдена ни среди аккаунтов, ни среди студентов.
var ErrIdentityNotFound = New(
	CodeNotFound,
	"identity",
	"Identity not found",
	http.StatusNotFound,
)

// =========================================================================
// Chat
// =========================================================================

// ErrConversationNotFound - диалог не найден.
var ErrConversationNotFound = New(
	CodeNotFound,
	"chat",
	"Conversation not found",
	http.StatusNotFound,
)

// ErrNotParticipant - идентичность не является участником диалога.
var ErrNotParticipant = New(
	CodeForbidden,
	"chat",
	"You are not a participant of this conversation",
	http.StatusForbidden,
)

// ErrChatNotAllowed - пара ролей не может переписываться (нет разрешения
// и нет одобренного запроса).
var ErrChatNotAllowed = New(
	CodeForbidden,
	"chat",
	"Messaging between these roles is not allowed",
	http.StatusForbidden,
)

// ErrEmptyMessage - пустое сообщение после trim.
var ErrEmptyMessage = New(
	CodeValidationFailed,
	"validation",
	"Message content must not be empty",
	http.StatusBadRequest,
)

// ErrMessageTooLong - превышен лимит длины сообщения.
var ErrMessageTooLong = New(
	CodeValidationFailed,
	"validation",
	"Message content exceeds the maximum length of 5000 characters",
	http.StatusBadRequest,
)

// ErrInvalidMessageType - неверный тип сообщения.
var ErrInvalidMessageType = New(
	CodeValidationFailed,
	"validation",
	"Invalid message type",
	http.StatusBadRequest,
)

// ErrSelfConversation - попытка начать диалог с самим собой.
var ErrSelfConversation = New(
	CodeInvalidOperation,
	"chat",
	"Cannot start a conversation with yourself",
	http.StatusBadRequest,
)

// =========================================================================
// Chat requests
// =========================================================================

// ErrChatRequestNotFound - запрос на чат не найден.
var ErrChatRequestNotFound = New(
	CodeNotFound,
	"chat_request",
	"Chat request not found",
	http.StatusNotFound,
)

// ErrChatRequestNotOwned - запросом управляет другой advisor.
var ErrChatRequestNotOwned = New(
	CodeForbidden,
	"chat_request",
	"Only the assigned advisor can respond to this request",
	http.StatusForbidden,
)

// ErrChatRequestResolved - запрос уже одобрен или отклонен.
// Текущий статус добавляется через WithDetails.
var ErrChatRequestResolved = New(
	CodeConflict,
	"chat_request",
	"Chat request has already been resolved",
	http.StatusConflict,
)

// ErrDuplicateChatRequest - для пары студент-ревьюер уже есть
// незакрытый или одобренный запрос.
var ErrDuplicateChatRequest = New(
	CodeConflict,
	"chat_request",
	"A pending or approved request already exists for this reviewer",
	http.StatusConflict,
)

// ErrNoAdvisorAssigned - у студента не назначен advisor, запрос создать нельзя.
var ErrNoAdvisorAssigned = New(
	CodeInvalidOperation,
	"chat_request",
	"No advisor is assigned to this student",
	http.StatusBadRequest,
)

// =========================================================================
// Notifications
// =========================================================================

// ErrNotificationNotFound - уведомление не найдено или принадлежит другому получателю.
var ErrNotificationNotFound = New(
	CodeNotFound,
	"notification",
	"Notification not found",
	http.StatusNotFound,
)

// ErrInvalidNotificationType - неизвестный тип уведомления.
var ErrInvalidNotificationType = New(
	CodeValidationFailed,
	"validation",
	"Invalid notification type",
	http.StatusBadRequest,
)

// =========================================================================
// Review sessions
// =========================================================================

// ErrReviewSessionNotFound - ревью-сессия не найдена.
var ErrReviewSessionNotFound = New(
	CodeNotFound,
	"review",
	"Review session not found",
	http.StatusNotFound,
)

// ErrReviewSessionResolved - сессия уже завершена или отменена.
var ErrReviewSessionResolved = New(
	CodeConflict,
	"review",
	"Review session has already been completed or cancelled",
	http.StatusConflict,
)

// ErrReviewAccessDenied - идентичность не имеет отношения к сессии.
var ErrReviewAccessDenied = New(
	CodeForbidden,
	"review",
	"Access to this review session is denied",
	http.StatusForbidden,
)

// =========================================================================
// Devices
// =========================================================================

// ErrDeviceTokenNotFound - токен устройства не найден у получателя.
var ErrDeviceTokenNotFound = New(
	CodeNotFound,
	"device",
	"Device token not found",
	http.StatusNotFound,
)
