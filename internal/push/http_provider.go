package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPConfig содержит конфигурацию push-шлюза
type HTTPConfig struct {
	Endpoint  string
	ServerKey string
	Timeout   time.Duration
}

// HTTPProvider реализует Provider поверх legacy HTTP API push-шлюза
type HTTPProvider struct {
	config *HTTPConfig
	client *http.Client
}

type sendRequest struct {
	To           string            `json:"to"`
	Notification *Notification     `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type sendResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// NewHTTPProvider создает новый push-провайдер
func NewHTTPProvider(config *HTTPConfig) (*HTTPProvider, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("push endpoint is required")
	}
	if config.ServerKey == "" {
		return nil, fmt.Errorf("push server key is required")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (p *HTTPProvider) Send(ctx context.Context, deviceToken string, notification *Notification) error {
	payload, err := json.Marshal(sendRequest{
		To:           deviceToken,
		Notification: notification,
		Data:         notification.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.config.ServerKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	var body sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// Шлюз ответил 200 с нестандартным телом - считаем доставленным
		return nil
	}

	if body.Failure > 0 && len(body.Results) > 0 {
		switch body.Results[0].Error {
		case "NotRegistered", "InvalidRegistration", "MismatchSenderId":
			return ErrInvalidToken
		default:
			return fmt.Errorf("push gateway error: %s", body.Results[0].Error)
		}
	}

	return nil
}

func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
