package integration_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"mentorhub_backend/internal/models"
	"mentorhub_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactCard struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	Role          string `json:"role"`
	CollectionTag string `json:"collectionTag"`
	IsOnline      bool   `json:"isOnline"`
	CanChat       bool   `json:"canChat"`
	NeedsApproval bool   `json:"needsApproval"`
	HasApproval   bool   `json:"hasApproval"`
}

// TestContact_StudentView - вердикты разрешений глазами студента
func TestContact_StudentView(t *testing.T) {
	t.Parallel()

	// 1. Подготовка: студент, его advisor, reviewer, второй студент и admin
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	_, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	_, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	_, admin := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdmin)
	studentToken, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)
	_, otherStudent := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	// 2. Действие
	res, bodyStr := ts.SendRequest(t, tx, "GET", "/api/v1/contacts", studentToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var list struct {
		Contacts []contactCard `json:"contacts"`
	}
	require.NoError(t, json.Unmarshal([]byte(bodyStr), &list))
	contacts := make(map[string]contactCard, len(list.Contacts))
	for _, contact := range list.Contacts {
		contacts[contact.ID] = contact
	}

	// 3. Advisor и admin доступны сразу
	advisorCard, ok := contacts[advisor.ID]
	require.True(t, ok, "Advisor должен быть в контактах студента")
	assert.True(t, advisorCard.CanChat)
	assert.False(t, advisorCard.NeedsApproval)
	assert.Equal(t, "Account", advisorCard.CollectionTag)
	assert.False(t, advisorCard.IsOnline, "Без WS-подключения контакт оффлайн")

	adminCard, ok := contacts[admin.ID]
	require.True(t, ok)
	assert.True(t, adminCard.CanChat)

	// 4. Reviewer виден, но требует одобрения
	reviewerCard, ok := contacts[reviewer.ID]
	require.True(t, ok, "Reviewer должен быть виден студенту")
	assert.False(t, reviewerCard.CanChat)
	assert.True(t, reviewerCard.NeedsApproval)
	assert.False(t, reviewerCard.HasApproval)

	// 5. Другие студенты и сам вызывающий в списке отсутствуют
	_, ok = contacts[otherStudent.ID]
	assert.False(t, ok, "Пара student-student запрещена")
	_, ok = contacts[student.ID]
	assert.False(t, ok, "Сам вызывающий не контакт")
	t.Logf("КОНТАКТЫ СТУДЕНТА: Успешно. Ответ: %s", bodyStr)

	// 6. После одобренного запроса reviewer становится доступен
	CreateTestChatRequest(t, tx, student.ID, reviewer.ID, advisor.ID, models.ChatRequestApproved)

	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/contacts", studentToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(bodyStr), &list))
	for _, contact := range list.Contacts {
		if contact.ID == reviewer.ID {
			assert.True(t, contact.CanChat, "После одобрения чат доступен")
			assert.True(t, contact.NeedsApproval)
			assert.True(t, contact.HasApproval)
		}
	}
	t.Logf("КОНТАКТЫ ПОСЛЕ ОДОБРЕНИЯ: Успешно")
}

// TestContact_StaffView - вердикты для staff-ролей симметричны матрице пар
func TestContact_StaffView(t *testing.T) {
	t.Parallel()

	// 1. Подготовка
	ts := GetTestServer(t)
	tx := ts.BeginTransaction(t)
	defer ts.RollbackTransaction(t, tx)

	advisorToken, advisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	_, otherAdvisor := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdvisor)
	reviewerToken, reviewer := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleReviewer)
	_, admin := helpers.CreateAndLoginStaff(t, ts, tx, models.RoleAdmin)
	_, student := helpers.CreateAndLoginStudent(t, ts, tx, &advisor.ID)

	// 2. Advisor: студенты, reviewer'ы и admin доступны, коллеги-advisor'ы нет
	res, bodyStr := ts.SendRequest(t, tx, "GET", "/api/v1/contacts", advisorToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var list struct {
		Contacts []contactCard `json:"contacts"`
	}
	require.NoError(t, json.Unmarshal([]byte(bodyStr), &list))
	contacts := make(map[string]contactCard, len(list.Contacts))
	for _, contact := range list.Contacts {
		contacts[contact.ID] = contact
	}

	studentCard, ok := contacts[student.ID]
	require.True(t, ok)
	assert.True(t, studentCard.CanChat)
	assert.Equal(t, "Student", studentCard.CollectionTag)

	reviewerCard, ok := contacts[reviewer.ID]
	require.True(t, ok)
	assert.True(t, reviewerCard.CanChat)

	adminCard, ok := contacts[admin.ID]
	require.True(t, ok)
	assert.True(t, adminCard.CanChat)

	_, ok = contacts[otherAdvisor.ID]
	assert.False(t, ok, "Пара advisor-advisor запрещена")
	t.Logf("КОНТАКТЫ ADVISOR: Успешно")

	// 3. Reviewer: студент виден с needsApproval, advisor и admin доступны
	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/contacts", reviewerToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(bodyStr), &list))
	contacts = make(map[string]contactCard, len(list.Contacts))
	for _, contact := range list.Contacts {
		contacts[contact.ID] = contact
	}

	studentCard, ok = contacts[student.ID]
	require.True(t, ok, "Студент виден reviewer'у до одобрения")
	assert.False(t, studentCard.CanChat)
	assert.True(t, studentCard.NeedsApproval)
	assert.False(t, studentCard.HasApproval)

	advisorCard, ok := contacts[advisor.ID]
	require.True(t, ok)
	assert.True(t, advisorCard.CanChat)

	_, ok = contacts[admin.ID]
	require.True(t, ok)

	// 4. Одобрение открывает пару и в обратную сторону
	CreateTestChatRequest(t, tx, student.ID, reviewer.ID, advisor.ID, models.ChatRequestApproved)

	res, bodyStr = ts.SendRequest(t, tx, "GET", "/api/v1/contacts", reviewerToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(bodyStr), &list))
	for _, contact := range list.Contacts {
		if contact.ID == student.ID {
			assert.True(t, contact.CanChat)
			assert.True(t, contact.HasApproval)
		}
	}
	t.Logf("КОНТАКТЫ REVIEWER ПОСЛЕ ОДОБРЕНИЯ: Успешно. Ответ: %s", bodyStr)
}
