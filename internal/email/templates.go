package email

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

// Встроенные шаблоны. Платформа шлет немного типов писем,
// поэтому достаточно строковых констант вместо файлов на диске.
const (
	passwordResetTemplate = `<html><body>
<h2>Сброс пароля</h2>
<p>Здравствуйте, {{.UserName}}!</p>
<p>Вы запросили сброс пароля. Перейдите по ссылке, чтобы задать новый:</p>
<p><a href="{{.ActionURL}}">Сбросить пароль</a></p>
<p>Если вы не запрашивали сброс, просто проигнорируйте это письмо.</p>
</body></html>`

	reviewScheduledTemplate = `<html><body>
<h2>Назначено ревью</h2>
<p>Здравствуйте, {{.UserName}}!</p>
<p>Вам назначена ревью-сессия: <b>{{.Topic}}</b></p>
<p>Время: {{.ScheduledAt}}</p>
</body></html>`

	chatRequestTemplate = `<html><body>
<h2>Новый запрос на чат</h2>
<p>Здравствуйте, {{.UserName}}!</p>
<p>Студент {{.StudentName}} запрашивает чат с ревьюером {{.ReviewerName}}.</p>
<p>Запрос ожидает вашего решения.</p>
</body></html>`

	notificationTemplate = `<html><body>
<h2>{{.Subject}}</h2>
<p>{{.Message}}</p>
</body></html>`
)

// TemplateManager управляет html-шаблонами писем
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер с предзагруженными шаблонами
func NewTemplateManager() (*TemplateManager, error) {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}

	defaults := map[string]string{
		"password_reset":   passwordResetTemplate,
		"review_scheduled": reviewScheduledTemplate,
		"chat_request":     chatRequestTemplate,
		"notification":     notificationTemplate,
	}
	for name, body := range defaults {
		if err := tm.AddTemplate(name, body); err != nil {
			return nil, err
		}
	}
	return tm, nil
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// AddTemplate добавляет шаблон в менеджер
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()
	return nil
}

// TemplateNames возвращает список имен загруженных шаблонов
func (tm *TemplateManager) TemplateNames() []string {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	names := make([]string, 0, len(tm.templates))
	for name := range tm.templates {
		names = append(names, name)
	}
	return names
}
