package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trackbot/internal/config"
	"trackbot/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventFetchFailed, notifications.Payload{"mediaId": "abc"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "bot started",
			event:         notifications.EventBotStarted,
			payload:       notifications.Payload{"bot": "trackbot_test_bot"},
			expectTitle:   "trackbot - Online",
			expectMessage: "🤖 Bot @trackbot_test_bot is polling for updates",
			expectTags:    "trackbot,lifecycle",
		},
		{
			name:  "fetch failed",
			event: notifications.EventFetchFailed,
			payload: notifications.Payload{
				"kind":    "transcode_failed",
				"mediaId": "abc",
				"error":   "ffmpeg not found",
			},
			expectTitle:    "trackbot - Fetch Failed",
			expectMessage:  "❌ transcode_failed failed for abc: ffmpeg not found",
			expectTags:     "trackbot,fetch,error",
			expectPriority: "high",
		},
		{
			name:           "delivery failed",
			event:          notifications.EventDeliveryFailed,
			payload:        notifications.Payload{"mediaId": "abc", "error": "timeout"},
			expectTitle:    "trackbot - Delivery Failed",
			expectMessage:  "📭 Could not send abc: timeout",
			expectTags:     "trackbot,delivery,error",
			expectPriority: "high",
		},
		{
			name:           "credentials rejected",
			event:          notifications.EventCredentialsRejected,
			payload:        notifications.Payload{"mediaId": "abc"},
			expectTitle:    "trackbot - Credentials Rejected",
			expectMessage:  "🍪 The source asked for sign-in (abc). Refresh identity.cookies_file.",
			expectTags:     "trackbot,identity,alert",
			expectPriority: "urgent",
		},
		{
			name:           "search unavailable with missing field",
			event:          notifications.EventSearchUnavailable,
			payload:        notifications.Payload{},
			expectTitle:    "trackbot - Search Unavailable",
			expectMessage:  "🔎 Search failed: unknown",
			expectTags:     "trackbot,search,error",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceSuppressesErrorsWhenDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventSearchUnavailable,
		notifications.EventFetchFailed,
		notifications.EventDeliveryFailed,
		notifications.EventCredentialsRejected,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
