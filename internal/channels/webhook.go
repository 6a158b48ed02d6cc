package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coopco/dodgem/internal/bus"
)

func init() {
	Register("webhook", newWebhookChannel)
}

type webhookConfig struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// WebhookChannel POSTs each notification as JSON to a URL. It never
// receives messages.
type WebhookChannel struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// webhookPayload is the JSON body sent for each message.
type webhookPayload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	SentAt  string `json:"sentAt"`
}

func newWebhookChannel(cfg json.RawMessage, _ *bus.MessageBus) (Channel, error) {
	var c webhookConfig
	if err := json.Unmarshal(cfg, &c); err != nil {
		return nil, fmt.Errorf("failed to parse webhook config: %w", err)
	}
	if c.URL == "" {
		return nil, fmt.Errorf("webhook: url is required")
	}
	return &WebhookChannel{
		url:     c.URL,
		headers: c.Headers,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Start(_ context.Context) error { return nil }

func (c *WebhookChannel) Stop() error { return nil }

func (c *WebhookChannel) Send(msg bus.OutboundMessage) error {
	body, err := json.Marshal(webhookPayload{
		Type:    msg.Type,
		Content: msg.Content,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("webhook: encode: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook: send status %d: %s", resp.StatusCode, b)
	}
	return nil
}

func (c *WebhookChannel) IsAllowed(_ string) bool { return false }
