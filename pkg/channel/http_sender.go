package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultSendTimeout = 10 * time.Second

// HTTPSenderConfig configures an HTTPSender.
type HTTPSenderConfig struct {
	Channel  Channel
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// HTTPSender implements Sender against a provider's REST send endpoint.
// The provider is expected to accept a JSON body {to, subject, body} and
// respond with {"message_id": "..."} on success.
type HTTPSender struct {
	cfg    HTTPSenderConfig
	client *http.Client
}

// NewHTTPSender creates a sender for the configured provider endpoint.
func NewHTTPSender(cfg HTTPSenderConfig) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	return &HTTPSender{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Channel returns the channel this sender serves.
func (s *HTTPSender) Channel() Channel {
	return s.cfg.Channel
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// Send posts the message to the provider endpoint and returns the provider
// message id. A non-2xx response is a dispatch error; there is no retry here,
// ambiguous provider failures must not be re-sent.
func (s *HTTPSender) Send(ctx context.Context, to, subject, body string) (string, error) {
	payload, err := json.Marshal(sendRequest{To: to, Subject: subject, Body: body})
	if err != nil {
		return "", fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logrus.Errorf("provider rejected %s send: status=%d body=%s", s.cfg.Channel, resp.StatusCode, data)
		return "", fmt.Errorf("provider rejected send: status %d", resp.StatusCode)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	if out.MessageID == "" {
		return "", fmt.Errorf("provider response missing message_id")
	}

	logrus.Debugf("dispatched %s message to provider, id=%s", s.cfg.Channel, out.MessageID)
	return out.MessageID, nil
}
