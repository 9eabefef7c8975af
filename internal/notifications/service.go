package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trackbot/internal/config"
)

const userAgent = "trackbot/0.1.0"

// Event names a notification type.
type Event string

const (
	EventBotStarted          Event = "bot_started"
	EventSearchUnavailable   Event = "search_unavailable"
	EventFetchFailed         Event = "fetch_failed"
	EventDeliveryFailed      Event = "delivery_failed"
	EventCredentialsRejected Event = "credentials_rejected"
	EventTest                Event = "test"
)

// Payload carries event fields by name.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		errors:   cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBotStarted:
		return message{
			title: "trackbot - Online",
			body:  fmt.Sprintf("🤖 Bot @%s is polling for updates", payload.text("bot")),
			tags:  []string{"trackbot", "lifecycle"},
		}, true
	case EventTest:
		return message{
			title:    "trackbot - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"trackbot", "test"},
			priority: "low",
		}, true
	}
	if !n.errors {
		return message{}, false
	}
	switch event {
	case EventSearchUnavailable:
		return message{
			title:    "trackbot - Search Unavailable",
			body:     fmt.Sprintf("🔎 Search failed: %s", payload.text("error")),
			tags:     []string{"trackbot", "search", "error"},
			priority: "high",
		}, true
	case EventFetchFailed:
		return message{
			title:    "trackbot - Fetch Failed",
			body:     fmt.Sprintf("❌ %s failed for %s: %s", payload.text("kind"), payload.text("mediaId"), payload.text("error")),
			tags:     []string{"trackbot", "fetch", "error"},
			priority: "high",
		}, true
	case EventDeliveryFailed:
		return message{
			title:    "trackbot - Delivery Failed",
			body:     fmt.Sprintf("📭 Could not send %s: %s", payload.text("mediaId"), payload.text("error")),
			tags:     []string{"trackbot", "delivery", "error"},
			priority: "high",
		}, true
	case EventCredentialsRejected:
		return message{
			title:    "trackbot - Credentials Rejected",
			body:     fmt.Sprintf("🍪 The source asked for sign-in (%s). Refresh identity.cookies_file.", payload.text("mediaId")),
			tags:     []string{"trackbot", "identity", "alert"},
			priority: "urgent",
		}, true
	}
	return message{}, false
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return "unknown"
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" {
		return "unknown"
	}
	return text
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
