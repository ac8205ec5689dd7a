package email

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// Provider определяет интерфейс для отправки email
type Provider interface {
	// Send отправляет готовое email сообщение
	Send(email *Email) error

	// SendTemplate отправляет email по именованному шаблону
	SendTemplate(to []string, subject, templateName string, data TemplateData) error

	// SendPasswordReset отправляет письмо для сброса пароля
	SendPasswordReset(to, name, resetURL string) error

	// SendReviewScheduled уведомляет участника о назначенном ревью
	SendReviewScheduled(to, name, topic string, at time.Time) error

	// SendChatRequestPending уведомляет advisor об ожидающем запросе на чат
	SendChatRequestPending(to, advisorName, studentName, reviewerName string) error

	// Validate проверяет конфигурацию провайдера
	Validate() error

	// Close закрывает соединение с провайдером
	Close() error
}

// GomailProvider реализует Provider поверх gomail
type GomailProvider struct {
	config   *SMTPConfig
	dialer   *gomail.Dialer
	renderer *TemplateManager
}

// NewGomailProvider создает новый SMTP провайдер
func NewGomailProvider(config *SMTPConfig) (*GomailProvider, error) {
	renderer, err := NewTemplateManager()
	if err != nil {
		return nil, err
	}

	p := &GomailProvider{
		config:   config,
		dialer:   gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		renderer: renderer,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *GomailProvider) Send(email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(p.config.FromEmail, p.config.FromName))
	m.SetHeader("To", email.To...)
	m.SetHeader("Subject", email.Subject)

	switch {
	case email.Body != "" && email.HTMLBody != "":
		m.SetBody("text/plain", email.Body)
		m.AddAlternative("text/html", email.HTMLBody)
	case email.HTMLBody != "":
		m.SetBody("text/html", email.HTMLBody)
	default:
		m.SetBody("text/plain", email.Body)
	}

	return p.dialer.DialAndSend(m)
}

func (p *GomailProvider) SendTemplate(to []string, subject, templateName string, data TemplateData) error {
	htmlBody, err := p.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.Send(&Email{
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	})
}

func (p *GomailProvider) SendPasswordReset(to, name, resetURL string) error {
	data := TemplateData{
		"UserName":  name,
		"ActionURL": resetURL,
	}
	return p.SendTemplate([]string{to}, "Сброс пароля", "password_reset", data)
}

func (p *GomailProvider) SendReviewScheduled(to, name, topic string, at time.Time) error {
	data := TemplateData{
		"UserName":    name,
		"Topic":       topic,
		"ScheduledAt": at.Format("02.01.2006 15:04"),
	}
	return p.SendTemplate([]string{to}, "Назначено ревью", "review_scheduled", data)
}

func (p *GomailProvider) SendChatRequestPending(to, advisorName, studentName, reviewerName string) error {
	data := TemplateData{
		"UserName":     advisorName,
		"StudentName":  studentName,
		"ReviewerName": reviewerName,
	}
	return p.SendTemplate([]string{to}, "Новый запрос на чат", "chat_request", data)
}

func (p *GomailProvider) Validate() error {
	if p.config.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if p.config.Port <= 0 || p.config.Port > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", p.config.Port)
	}
	if p.config.FromEmail == "" {
		return fmt.Errorf("from email is required")
	}
	return nil
}

// Close закрывает соединение (gomail открывает его на каждую отправку)
func (p *GomailProvider) Close() error {
	return nil
}

// NoopProvider отбрасывает все письма. Используется, когда SMTP не настроен.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (p *NoopProvider) Send(email *Email) error { return nil }
func (p *NoopProvider) SendTemplate(to []string, subject, templateName string, data TemplateData) error {
	return nil
}
func (p *NoopProvider) SendPasswordReset(to, name, resetURL string) error { return nil }
func (p *NoopProvider) SendReviewScheduled(to, name, topic string, at time.Time) error {
	return nil
}
func (p *NoopProvider) SendChatRequestPending(to, advisorName, studentName, reviewerName string) error {
	return nil
}
func (p *NoopProvider) Validate() error { return nil }
func (p *NoopProvider) Close() error    { return nil }
