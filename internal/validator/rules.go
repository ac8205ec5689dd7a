package validator

import (
	"log"

	"mentorhub_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует кастомные функции валидации
// в переданном экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Ошибка регистрации правила - критическая ошибка запуска
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-staff-role", validateStaffRole)
	mustRegister("is-message-type", validateMessageType)
	mustRegister("is-priority", validatePriority)
	mustRegister("is-recipient-group", validateRecipientGroup)
}

// --- Функции валидации ---

func validateStaffRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // пустые значения проверяет 'required'
	}
	switch models.UserRole(value) {
	case models.RoleAdmin, models.RoleAdvisor, models.RoleReviewer:
		return true
	}
	return false
}

func validateMessageType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.MessageType(value) {
	case models.MessageTypeText, models.MessageTypeSystem, models.MessageTypeFile:
		return true
	}
	return false
}

func validatePriority(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.NotificationPriority(value) {
	case models.PriorityLow, models.PriorityNormal, models.PriorityHigh:
		return true
	}
	return false
}

func validateRecipientGroup(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.RecipientGroup(value) {
	case models.GroupAll, models.GroupStudents, models.GroupAdvisors, models.GroupReviewers:
		return true
	}
	return false
}
