package push

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken возвращается, когда провайдер отверг токен устройства.
	// Вызывающий должен удалить такой токен из БД.
	ErrInvalidToken = errors.New("device token rejected by provider")
)

// Notification представляет push-уведомление для одного устройства
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Provider определяет интерфейс для отправки push-уведомлений
type Provider interface {
	// Send отправляет уведомление на одно устройство
	Send(ctx context.Context, deviceToken string, notification *Notification) error

	// Close освобождает ресурсы провайдера
	Close() error
}

// NoopProvider отбрасывает все уведомления. Используется, когда push отключен.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (p *NoopProvider) Send(ctx context.Context, deviceToken string, notification *Notification) error {
	return nil
}

func (p *NoopProvider) Close() error { return nil }
