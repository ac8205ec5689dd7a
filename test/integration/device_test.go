package integration_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"mentorhub_backend/internal/models"
	"mentorhub_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDevice_RegisterAndUnregister - жизненный цикл push-токена устройства
func TestDevice_RegisterAndUnregister(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, nil)
	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)

	deviceToken := fmt.Sprintf("fcm-token-%d", time.Now().UnixNano())

	// 2. Студент регистрирует устройство
	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/devices", studentToken, map[string]interface{}{
		"token":    deviceToken,
		"platform": "android",
	})
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Contains(t, bodyStr, "Device registered")

	var stored models.DeviceToken
	require.NoError(t, tx.Where("token = ?", deviceToken).First(&stored).Error)
	assert.Equal(t, student.ID, stored.IdentityID)
	assert.Equal(t, models.TagStudent, stored.IdentityTag)
	assert.Equal(t, "android", stored.Platform)
	t.Logf("РЕГИСТРАЦИЯ УСТРОЙСТВА: Успешно (201). Ответ: %s", bodyStr)

	// 3. Повторная регистрация того же токена другой идентичностью
	// переподвязывает устройство, а не создает дубль
	res, _ = ts.SendRequest(t, tx, "POST", "/api/v1/devices", advisorToken, map[string]interface{}{
		"token":    deviceToken,
		"platform": "ios",
	})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	var count int64
	require.NoError(t, tx.Model(&models.DeviceToken{}).Where("token = ?", deviceToken).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, tx.Where("token = ?", deviceToken).First(&stored).Error)
	assert.Equal(t, advisor.ID, stored.IdentityID)
	assert.Equal(t, models.TagAccount, stored.IdentityTag)
	assert.Equal(t, "ios", stored.Platform)
	t.Logf("ПЕРЕПОДВЯЗКА ТОКЕНА: Успешно")

	// 4. Отвязка устройства
	res, bodyStr = ts.SendRequest(t, tx, "DELETE", "/api/v1/devices/"+deviceToken, advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, "Device removed")

	require.NoError(t, tx.Model(&models.DeviceToken{}).Where("token = ?", deviceToken).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// 5. Повторная отвязка уже удаленного токена
	res, bodyStr = ts.SendRequest(t, tx, "DELETE", "/api/v1/devices/"+deviceToken, advisorToken, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, bodyStr, "Device token not found")
	t.Logf("ОТВЯЗКА УСТРОЙСТВА: Успешно (404 на повторе). Ответ: %s", bodyStr)
}

// TestDevice_RegisterValidation - валидация тела и обязательная авторизация
func TestDevice_RegisterValidation(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	studentToken, _ := helpers.CreateAndLoginStudent(t, ts, tx, nil)

	// 2. Неизвестная платформа
	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/devices", studentToken, map[string]interface{}{
		"token":    "some-token",
		"platform": "windows",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "Validation failed")

	// 3. Пустой токен
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/devices", studentToken, map[string]interface{}{
		"platform": "ios",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "Validation failed")
	t.Logf("ВАЛИДАЦИЯ УСТРОЙСТВА: Успешно (400)")

	// 4. Без авторизации
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/devices", "", map[string]interface{}{
		"token":    "some-token",
		"platform": "ios",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, bodyStr, "Authorization header missing or invalid")
	t.Logf("БЕЗ АВТОРИЗАЦИИ: Успешно (401)")
}

// TestDevice_PushToggle - флаг push-подписки переключается в обеих коллекциях
func TestDevice_PushToggle(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	studentToken, _ := helpers.CreateAndLoginStudent(t, ts, tx, nil)
	advisorToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)

	// 2. По умолчанию push включен
	res, bodyStr := ts.SendRequest(t, tx, "GET", "/api/v1/auth/me", studentToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"pushEnabled":true`)

	// 3. Студент выключает push
	res, bodyStr = ts.SendRequest(t, tx, "PUT", "/api/v1/devices/push", studentToken, map[string]interface{}{
		"enabled": false,
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, "Push preference updated")

	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/auth/me", studentToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"pushEnabled":false`)
	t.Logf("ВЫКЛЮЧЕНИЕ PUSH У СТУДЕНТА: Успешно. Ответ: %s", bodyStr)

	// 4. Staff-идентичность переключается через свою коллекцию
	res, _ = ts.SendRequest(t, tx, "PUT", "/api/v1/devices/push", advisorToken, map[string]interface{}{
		"enabled": false,
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/auth/me", advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"pushEnabled":false`)

	// 5. Обратное включение
	res, _ = ts.SendRequest(t, tx, "PUT", "/api/v1/devices/push", advisorToken, map[string]interface{}{
		"enabled": true,
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/auth/me", advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"pushEnabled":true`)
	t.Logf("ПЕРЕКЛЮЧЕНИЕ PUSH У STAFF: Успешно")
}
