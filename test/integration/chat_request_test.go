package integration_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"mentorhub_backend/internal/models"
	"mentorhub_backend/test/helpers"

	"github.com/stretchr/testify/assert"
)

// TestChatRequest_ApprovalWorkflow - E2E workflow одобрения: запрос студента,
// одобрение advisor'ом, после чего пара student-reviewer может переписываться
func TestChatRequest_ApprovalWorkflow(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	reviewerToken, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	// До одобрения переписка пары закрыта
	res, _ := ts.SendRequest(t, tx, "POST", "/api/v1/conversations", studentToken,
		map[string]interface{}{"recipientId": reviewer.ID})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// --- 2. Студент подает запрос ---
	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": reviewer.ID, "reason": "Вопросы по последнему ревью"})

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"pending"`)
	assert.Contains(t, bodyStr, "Вопросы по последнему ревью")
	assert.Contains(t, bodyStr, advisor.ID, "Запрос должен быть адресован закрепленному advisor")

	var request struct {
		ID string `json:"id"`
	}
	err := json.Unmarshal([]byte(bodyStr), &request)
	assert.NoError(t, err)
	assert.NotEmpty(t, request.ID)
	t.Logf("ЗАПРОС НА ЧАТ: Создан (201). ID: %s", request.ID)

	// --- 3. Advisor одобряет ---
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests/"+request.ID+"/approve", advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"approved"`)
	assert.Contains(t, bodyStr, `"respondedAt"`)
	t.Logf("ЗАПРОС НА ЧАТ: Одобрен (200).")

	// --- 4. Теперь переписка открыта в обе стороны ---
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/conversations", studentToken,
		map[string]interface{}{"recipientId": reviewer.ID})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var conversation struct {
		ID string `json:"id"`
	}
	json.Unmarshal([]byte(bodyStr), &conversation)

	res, _ = ts.SendRequest(t, tx, "POST", "/api/v1/conversations/"+conversation.ID+"/messages", reviewerToken,
		map[string]interface{}{"content": "Давайте разберем ваше решение"})
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	t.Logf("ЗАПРОС НА ЧАТ: Пара student-reviewer переписывается - Успешно. Студент: %s", student.Email)
}

// TestChatRequest_RejectionAndRetry - отклонение с причиной и право
// студента подать запрос повторно
func TestChatRequest_RejectionAndRetry(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	_, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, _ := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": reviewer.ID})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	var request struct {
		ID string `json:"id"`
	}
	json.Unmarshal([]byte(bodyStr), &request)

	// 2. Advisor отклоняет с причиной
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests/"+request.ID+"/reject", advisorToken,
		map[string]interface{}{"reason": "Сначала обсудите с ментором"})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"rejected"`)
	assert.Contains(t, bodyStr, "Сначала обсудите с ментором")

	// Переписка по-прежнему закрыта
	res, _ = ts.SendRequest(t, tx, "POST", "/api/v1/conversations", studentToken,
		map[string]interface{}{"recipientId": reviewer.ID})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// 3. После отклонения студент может подать запрос снова
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": reviewer.ID, "reason": "Обсудили, ментор не против"})
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"pending"`)
	t.Logf("ЗАПРОС НА ЧАТ: Отклонение и повторная подача - Успешно.")
}

// TestChatRequest_OnlyAssignedAdvisorResponds - отвечает только advisor,
// закрепленный за студентом на момент запроса
func TestChatRequest_OnlyAssignedAdvisorResponds(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	_, advisorA := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	advisorBToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	adminToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdmin)
	_, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, _ := helpers.CreateAndLoginStudent(t, ts, tx, &advisorA.ID)

	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": reviewer.ID})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	var request struct {
		ID string `json:"id"`
	}
	json.Unmarshal([]byte(bodyStr), &request)
	approveURL := "/api/v1/chat-requests/" + request.ID + "/approve"

	// 2. Чужой advisor получает отказ на уровне сервиса
	res, bodyStr = ts.SendRequest(t, tx, "POST", approveURL, advisorBToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Only the assigned advisor can respond to this request")

	// 3. Студент и admin не проходят ролевой гейт маршрута
	res, bodyStr = ts.SendRequest(t, tx, "POST", approveURL, studentToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Access denied")

	res, _ = ts.SendRequest(t, tx, "POST", approveURL, adminToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// Запрос остался pending
	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/chat-requests/"+request.ID, studentToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"pending"`)
	t.Logf("ЗАПРОС НА ЧАТ: Чужие не могут отвечать - Успешно.")
}

// TestChatRequest_DoubleResolveConflict - повторный ответ на разрешенный
// запрос дает конфликт с текущим статусом в деталях
func TestChatRequest_DoubleResolveConflict(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	_, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, _ := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": reviewer.ID})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	var request struct {
		ID string `json:"id"`
	}
	json.Unmarshal([]byte(bodyStr), &request)

	// 2. Первое одобрение проходит
	res, _ = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests/"+request.ID+"/approve", advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// 3. Повторное одобрение и отклонение дают конфликт
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests/"+request.ID+"/approve", advisorToken, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Contains(t, bodyStr, "Chat request has already been resolved")
	assert.Contains(t, bodyStr, `"status":"approved"`)

	res, _ = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests/"+request.ID+"/reject", advisorToken, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	t.Logf("ЗАПРОС НА ЧАТ: Повторный ответ конфликтует (409) - Успешно.")
}

// TestChatRequest_CreateValidations - проверки на создании запроса
func TestChatRequest_CreateValidations(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	_, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, _ := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)
	orphanToken, _ := helpers.CreateAndLoginStudent(t, ts, tx, nil)

	// 2. Подавать запросы могут только студенты (гейт маршрута)
	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", advisorToken,
		map[string]interface{}{"reviewerId": reviewer.ID})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Access denied")

	// 3. Студент без закрепленного advisor
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", orphanToken,
		map[string]interface{}{"reviewerId": reviewer.ID})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "No advisor is assigned to this student")

	// 4. Получатель должен быть активным ревьюером
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": advisor.ID})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "Recipient is not an active reviewer")

	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": "00000000-0000-0000-0000-000000000003"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, bodyStr, "Identity not found")

	// Деактивированный ревьюер тоже не годится
	inactiveEmail := "inactive.reviewer@test.com"
	inactiveReviewer := &models.User{
		Email:        inactiveEmail,
		PasswordHash: "password123",
		DisplayName:  "Inactive Reviewer",
		Role:         models.RoleReviewer,
	}
	err := helpers.CreateStaff(t, tx, inactiveReviewer)
	assert.NoError(t, err)
	err = tx.Model(&models.User{}).Where("id = ?", inactiveReviewer.ID).Update("is_active", false).Error
	assert.NoError(t, err)

	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": inactiveReviewer.ID})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "Recipient is not an active reviewer")

	// 5. Дубликат pending-запроса
	res, _ = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": reviewer.ID})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": reviewer.ID})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Contains(t, bodyStr, "A pending or approved request already exists for this reviewer")
	t.Logf("ЗАПРОС НА ЧАТ: Валидации создания - Успешно.")
}

// TestChatRequest_NoNewRequestAfterApproval - одобренная пара не плодит
// новые запросы
func TestChatRequest_NoNewRequestAfterApproval(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	_, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	request := CreateTestChatRequest(t, tx, student.ID, reviewer.ID, advisor.ID, models.ChatRequestPending)

	res, _ := ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests/"+request.ID+"/approve", advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// 2. Новый запрос к тому же ревьюеру бессмыслен
	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/chat-requests", studentToken,
		map[string]interface{}{"reviewerId": reviewer.ID})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Contains(t, bodyStr, "request already approved")
	t.Logf("ЗАПРОС НА ЧАТ: После одобрения новый запрос не нужен (409).")
}

// TestChatRequest_ListScoping - каждый видит только свои запросы,
// у admin отдельного списка нет
func TestChatRequest_ListScoping(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	otherAdvisorToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	adminToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdmin)
	reviewerToken, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	request := CreateTestChatRequest(t, tx, student.ID, reviewer.ID, advisor.ID, models.ChatRequestPending)

	// 2. Вовлеченные видят запрос в своих списках
	for _, tc := range []struct {
		name  string
		token string
	}{
		{"advisor", advisorToken},
		{"student", studentToken},
		{"reviewer", reviewerToken},
	} {
		res, bodyStr := ts.SendRequest(t, tx, "GET", "/api/v1/chat-requests", tc.token, nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, bodyStr, request.ID, "%s должен видеть запрос в списке", tc.name)
		assert.Contains(t, bodyStr, `"total":1`)
	}

	// Фильтр по статусу
	res, bodyStr := ts.SendRequest(t, tx, "GET", "/api/v1/chat-requests?status=rejected", advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"total":0`)

	// 3. Чужой advisor запроса не видит
	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/chat-requests", otherAdvisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotContains(t, bodyStr, request.ID)

	// 4. У admin нет собственного скоупа списка
	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/chat-requests", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Insufficient permissions")
	t.Logf("ЗАПРОС НА ЧАТ: Скоупинг списков - Успешно.")
}

// TestChatRequest_GetVisibility - карточку запроса видят вовлеченные и admin
func TestChatRequest_GetVisibility(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	_, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	adminToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdmin)
	outsiderToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	_, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	request := CreateTestChatRequest(t, tx, student.ID, reviewer.ID, advisor.ID, models.ChatRequestPending)
	requestURL := "/api/v1/chat-requests/" + request.ID

	// 2. Участник и admin видят карточку
	res, bodyStr := ts.SendRequest(t, tx, "GET", requestURL, studentToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, request.ID)

	res, _ = ts.SendRequest(t, tx, "GET", requestURL, adminToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// 3. Посторонний ревьюер - нет
	res, bodyStr = ts.SendRequest(t, tx, "GET", requestURL, outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Insufficient permissions")

	// 4. Несуществующий запрос
	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/chat-requests/00000000-0000-0000-0000-000000000004", studentToken, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, bodyStr, "Chat request not found")
	t.Logf("ЗАПРОС НА ЧАТ: Видимость карточки - Успешно.")
}
