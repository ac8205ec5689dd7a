package integration_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"mentorhub_backend/internal/models"
	"mentorhub_backend/test/helpers"

	"github.com/stretchr/testify/assert"
)

// TestReview_ScheduleAndCompleteFlow - E2E: advisor назначает ревью своему
// студенту, все стороны видят сессию, ревьюер ее завершает
func TestReview_ScheduleAndCompleteFlow(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	reviewerToken, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	// --- 2. Advisor назначает ревью ---
	scheduleBody := map[string]interface{}{
		"studentId":   student.ID,
		"reviewerId":  reviewer.ID,
		"scheduledAt": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"topic":       "Ревью архитектуры сервиса",
	}
	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/reviews", advisorToken, scheduleBody)

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"scheduled"`)
	assert.Contains(t, bodyStr, "Ревью архитектуры сервиса")
	assert.Contains(t, bodyStr, student.DisplayName)
	assert.Contains(t, bodyStr, reviewer.DisplayName)

	var session struct {
		ID string `json:"id"`
	}
	err := json.Unmarshal([]byte(bodyStr), &session)
	assert.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	t.Logf("РЕВЬЮ: Сессия назначена (201). ID: %s", session.ID)

	// --- 3. Все три стороны видят сессию ---
	for _, tc := range []struct {
		name  string
		token string
	}{
		{"advisor", advisorToken},
		{"reviewer", reviewerToken},
		{"student", studentToken},
	} {
		res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/reviews", tc.token, nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, bodyStr, session.ID, "%s должен видеть сессию в списке", tc.name)

		res, _ = ts.SendRequest(t, tx, "GET", "/api/v1/reviews/"+session.ID, tc.token, nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	}
	t.Logf("РЕВЬЮ: Сессия видна всем сторонам.")

	// --- 4. Ревьюер завершает сессию ---
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+session.ID+"/complete", reviewerToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"completed"`)

	// Фильтр по статусу отражает переход
	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/reviews?status=scheduled", studentToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"total":0`)

	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/reviews?status=completed", studentToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"total":1`)
	t.Logf("РЕВЬЮ: Завершение и фильтры - Успешно.")
}

// TestReview_ScheduleValidations - проверки при назначении ревью
func TestReview_ScheduleValidations(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	adminToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdmin)
	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	reviewerToken, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)
	_, foreignStudent := helpers.CreateAndLoginStudent(t, ts, tx, nil)

	futureAt := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)

	// 2. Время в прошлом
	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/reviews", advisorToken, map[string]interface{}{
		"studentId":   student.ID,
		"reviewerId":  reviewer.ID,
		"scheduledAt": time.Now().Add(-1 * time.Hour).UTC().Format(time.RFC3339),
		"topic":       "Ревью задним числом",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "Scheduled time must be in the future")

	// 3. Чужой студент
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/reviews", advisorToken, map[string]interface{}{
		"studentId":   foreignStudent.ID,
		"reviewerId":  reviewer.ID,
		"scheduledAt": futureAt,
		"topic":       "Ревью чужого студента",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "Student is not assigned to this advisor")

	// Admin закрепление не проверяет
	res, _ = ts.SendRequest(t, tx, "POST", "/api/v1/reviews", adminToken, map[string]interface{}{
		"studentId":   foreignStudent.ID,
		"reviewerId":  reviewer.ID,
		"scheduledAt": futureAt,
		"topic":       "Ревью от админа",
	})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	// 4. Получатель должен быть активным ревьюером
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/reviews", advisorToken, map[string]interface{}{
		"studentId":   student.ID,
		"reviewerId":  advisor.ID,
		"scheduledAt": futureAt,
		"topic":       "Ревью без ревьюера",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "Recipient is not an active reviewer")

	// 5. Студент и ревьюер не проходят гейт маршрута
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/reviews", studentToken, map[string]interface{}{
		"studentId":   student.ID,
		"reviewerId":  reviewer.ID,
		"scheduledAt": futureAt,
		"topic":       "Самоназначение",
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Access denied")

	res, _ = ts.SendRequest(t, tx, "POST", "/api/v1/reviews", reviewerToken, map[string]interface{}{
		"studentId":   student.ID,
		"reviewerId":  reviewer.ID,
		"scheduledAt": futureAt,
		"topic":       "Назначение от ревьюера",
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	t.Logf("РЕВЬЮ: Валидации назначения - Успешно.")
}

// TestReview_CancelAuthorization - отменяет владеющий advisor или admin
func TestReview_CancelAuthorization(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	adminToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdmin)
	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	otherAdvisorToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)
	_, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)

	sessionA := CreateTestReviewSession(t, tx, student.ID, reviewer.ID, advisor.ID,
		time.Now().Add(24*time.Hour), "Сессия A")
	sessionB := CreateTestReviewSession(t, tx, student.ID, reviewer.ID, advisor.ID,
		time.Now().Add(48*time.Hour), "Сессия B")

	// 2. Чужой advisor и студент не могут отменить
	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+sessionA.ID+"/cancel", otherAdvisorToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Access to this review session is denied")

	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+sessionA.ID+"/cancel", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Access denied", "Студента отсекает гейт маршрута")

	// 3. Владеющий advisor отменяет свою, admin - любую
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+sessionA.ID+"/cancel", advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"cancelled"`)

	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+sessionB.ID+"/cancel", adminToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"cancelled"`)
	t.Logf("РЕВЬЮ: Авторизация отмены - Успешно.")
}

// TestReview_CompleteAuthorization - завершают ревьюер, advisor сессии
// или admin; студент не может
func TestReview_CompleteAuthorization(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	_, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	reviewerToken, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	session := CreateTestReviewSession(t, tx, student.ID, reviewer.ID, advisor.ID,
		time.Now().Add(24*time.Hour), "Ревью для завершения")

	// 2. Студент-участник завершить не может
	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+session.ID+"/complete", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Access to this review session is denied")

	// 3. Ревьюер завершает
	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+session.ID+"/complete", reviewerToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"completed"`)
	t.Logf("РЕВЬЮ: Авторизация завершения - Успешно.")
}

// TestReview_DoubleTransitionConflict - конечный статус необратим,
// конфликт несет фактический статус в деталях
func TestReview_DoubleTransitionConflict(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	_, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	_, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	session := CreateTestReviewSession(t, tx, student.ID, reviewer.ID, advisor.ID,
		time.Now().Add(24*time.Hour), "Одноразовое ревью")

	// 2. Первый переход проходит
	res, _ := ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+session.ID+"/complete", advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// 3. Повторное завершение и отмена конфликтуют
	res, bodyStr := ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+session.ID+"/complete", advisorToken, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Contains(t, bodyStr, "Review session has already been completed or cancelled")
	assert.Contains(t, bodyStr, `"status":"completed"`)

	res, bodyStr = ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+session.ID+"/cancel", advisorToken, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Contains(t, bodyStr, `"status":"completed"`)
	t.Logf("РЕВЬЮ: Конечный статус необратим (409) - Успешно.")
}

// TestReview_ListScoping - в списке только сессии, где вызывающий
// является стороной; admin не видит чужие
func TestReview_ListScoping(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	adminToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdmin)
	advisorAToken, advisorA := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	_, advisorB := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	reviewerToken, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	_, studentA := helpers.CreateAndLoginStudent(t, ts, tx, &advisorA.ID)
	_, studentB := helpers.CreateAndLoginStudent(t, ts, tx, &advisorB.ID)

	sessionA := CreateTestReviewSession(t, tx, studentA.ID, reviewer.ID, advisorA.ID,
		time.Now().Add(24*time.Hour), "Сессия студента A")
	sessionB := CreateTestReviewSession(t, tx, studentB.ID, reviewer.ID, advisorB.ID,
		time.Now().Add(24*time.Hour), "Сессия студента B")

	// 2. Advisor A видит только свою
	res, bodyStr := ts.SendRequest(t, tx, "GET", "/api/v1/reviews", advisorAToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, sessionA.ID)
	assert.NotContains(t, bodyStr, sessionB.ID)
	assert.Contains(t, bodyStr, `"total":1`)

	// 3. Ревьюер - сторона обеих
	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/reviews", reviewerToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"total":2`)

	// 4. Admin не сторона - его список пуст
	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/reviews", adminToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"total":0`)

	// Но карточку admin смотреть может
	res, _ = ts.SendRequest(t, tx, "GET", "/api/v1/reviews/"+sessionA.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	t.Logf("РЕВЬЮ: Скоупинг списков - Успешно.")
}

// TestReview_SessionThread - тред сессии доступен сторонам,
// отмененная сессия закрыта для записи
func TestReview_SessionThread(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	reviewerToken, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)
	outsiderToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)

	session := CreateTestReviewSession(t, tx, student.ID, reviewer.ID, advisor.ID,
		time.Now().Add(24*time.Hour), "Ревью с обсуждением")
	threadURL := "/api/v1/reviews/" + session.ID + "/messages"

	// --- 2. Стороны пишут в тред ---
	res, bodyStr := ts.SendRequest(t, tx, "POST", threadURL, studentToken,
		map[string]interface{}{"content": "Прикрепил решение, готов обсуждать"})
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Contains(t, bodyStr, `"reviewSessionId"`)

	res, _ = ts.SendRequest(t, tx, "POST", threadURL, reviewerToken,
		map[string]interface{}{"content": "Посмотрю сегодня вечером"})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	// Все стороны читают тред
	for _, token := range []string{studentToken, reviewerToken, advisorToken} {
		res, bodyStr = ts.SendRequest(t, tx, "GET", threadURL, token, nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, bodyStr, "готов обсуждать")
		assert.Contains(t, bodyStr, `"total":2`)
	}

	// --- 3. Посторонний не сторона сессии ---
	res, bodyStr = ts.SendRequest(t, tx, "GET", threadURL, outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Access to this review session is denied")

	res, _ = ts.SendRequest(t, tx, "POST", threadURL, outsiderToken,
		map[string]interface{}{"content": "Я мимо проходил"})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// --- 4. Отмененная сессия закрыта для записи, но читаема ---
	res, _ = ts.SendRequest(t, tx, "POST", "/api/v1/reviews/"+session.ID+"/cancel", advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, bodyStr = ts.SendRequest(t, tx, "POST", threadURL, studentToken,
		map[string]interface{}{"content": "Еще вопрос"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "Cannot post messages to a cancelled session")

	res, bodyStr = ts.SendRequest(t, tx, "GET", threadURL, studentToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, `"total":2`)
	t.Logf("РЕВЬЮ: Тред сессии - Успешно.")
}

// TestReview_GetVisibility - карточка сессии для сторон и admin
func TestReview_GetVisibility(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	_, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	_, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)
	outsiderToken, _ := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)

	session := CreateTestReviewSession(t, tx, student.ID, reviewer.ID, advisor.ID,
		time.Now().Add(24*time.Hour), "Закрытая карточка")

	// 2. Сторона видит, посторонний - нет
	res, bodyStr := ts.SendRequest(t, tx, "GET", "/api/v1/reviews/"+session.ID, studentToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, "Закрытая карточка")

	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/reviews/"+session.ID, outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "Access to this review session is denied")

	// 3. Несуществующая сессия
	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/reviews/00000000-0000-0000-0000-000000000005", studentToken, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, bodyStr, "Review session not found")
	t.Logf("РЕВЬЮ: Видимость карточки - Успешно.")
}
