package helpers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"testing"
	"time"

	"mentorhub_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateStaff создает staff-аккаунт в транзакции с автоматическим хешированием пароля
func CreateStaff(t *testing.T, db *gorm.DB, user *models.User) error {
	// Хешируем только сырой пароль, уже хешированный оставляем как есть
	if user.PasswordHash != "" && !strings.HasPrefix(user.PasswordHash, "$2a$") {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.PasswordHash), bcrypt.DefaultCost)
		if err != nil {
			t.Fatalf("Не удалось хешировать пароль: %v", err)
		}
		user.PasswordHash = string(hashedPassword)
	}

	// По умолчанию - активный
	user.IsActive = true
	user.PushEnabled = true

	result := db.Create(user)
	if result.Error != nil {
		t.Logf("ОШИБКА: не удалось создать staff-аккаунт %s: %v", user.Email, result.Error)
		return result.Error
	}

	return nil
}

// CreateStudent создает аккаунт студента в транзакции с автоматическим хешированием пароля
func CreateStudent(t *testing.T, db *gorm.DB, student *models.Student) error {
	if student.PasswordHash != "" && !strings.HasPrefix(student.PasswordHash, "$2a$") {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(student.PasswordHash), bcrypt.DefaultCost)
		if err != nil {
			t.Fatalf("Не удалось хешировать пароль: %v", err)
		}
		student.PasswordHash = string(hashedPassword)
	}

	student.IsActive = true
	student.PushEnabled = true

	result := db.Create(student)
	if result.Error != nil {
		t.Logf("ОШИБКА: не удалось создать студента %s: %v", student.Email, result.Error)
		return result.Error
	}

	return nil
}

// LoginIdentity логинит идентичность через API и возвращает пару токенов (access, refresh)
func LoginIdentity(t *testing.T, ts *TestServer, tx *gorm.DB, email, password string) (string, string) {
	loginBody := map[string]interface{}{
		"email":    email,
		"password": password,
	}

	res, bodyStr := ts.SendRequest(t, tx, http.MethodPost, "/api/v1/auth/login", "", loginBody)
	assert.Equal(t, http.StatusOK, res.StatusCode, "Логин должен быть успешным. Ответ: "+bodyStr)

	var loginResponse struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	err := json.Unmarshal([]byte(bodyStr), &loginResponse)
	assert.NoError(t, err, "Не удалось распарсить JSON")
	assert.NotEmpty(t, loginResponse.AccessToken, "Токен не должен быть пустым")

	return loginResponse.AccessToken, loginResponse.RefreshToken
}

// CreateAndLoginStaff создает staff-аккаунт заданной роли с уникальным email и логинит его
func CreateAndLoginStaff(t *testing.T, ts *TestServer, tx *gorm.DB, role models.UserRole) (string, *models.User) {
	email := fmt.Sprintf("%s_%d@test.com", role, time.Now().UnixNano())

	user := &models.User{
		Email:        email,
		PasswordHash: "password123", // Сырой пароль, CreateStaff его хеширует
		DisplayName:  fmt.Sprintf("Test %s", role),
		Role:         role,
	}
	err := CreateStaff(t, tx, user)
	assert.NoError(t, err, "Создание тестового staff-аккаунта не должно вызывать ошибку")

	token, _ := LoginIdentity(t, ts, tx, email, "password123")

	log.Printf("[Helper] Создан и залогинен staff %s (role: %s)", email, role)
	return token, user
}

// CreateAndLoginStudent создает студента с уникальным email и логинит его.
// advisorID может быть nil - тогда студент без закрепленного эдвайзера.
func CreateAndLoginStudent(t *testing.T, ts *TestServer, tx *gorm.DB, advisorID *string) (string, *models.Student) {
	email := fmt.Sprintf("student_%d@test.com", time.Now().UnixNano())

	student := &models.Student{
		Email:        email,
		PasswordHash: "password123",
		DisplayName:  "Test student",
		AdvisorID:    advisorID,
	}
	err := CreateStudent(t, tx, student)
	assert.NoError(t, err, "Создание тестового студента не должно вызывать ошибку")

	token, _ := LoginIdentity(t, ts, tx, email, "password123")

	log.Printf("[Helper] Создан и залогинен студент %s", email)
	return token, student
}
