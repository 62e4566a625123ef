package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"platter/internal/config"
	"platter/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyImportCompleted(context.Background(), "Example", ""); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "decision required",
			notify: func(svc notifications.Service) error {
				return svc.NotifyDecisionRequired(context.Background(), "Abbey Road", "strong")
			},
			expectTitle:    "Platter - Decision Required",
			expectMessage:  "Awaiting decision: Abbey Road (recommendation: strong)",
			expectTags:     "platter,decision,waiting",
			expectPriority: "high",
		},
		{
			name: "duplicate found",
			notify: func(svc notifications.Service) error {
				return svc.NotifyDuplicateFound(context.Background(), "Abbey Road", 2)
			},
			expectTitle:   "Platter - Duplicate Found",
			expectMessage: "Duplicate conflict: Abbey Road (2 existing)",
			expectTags:    "platter,duplicate,review",
		},
		{
			name: "import completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyImportCompleted(context.Background(), "Abbey Road", "/library/Beatles/Abbey Road")
			},
			expectTitle:   "Platter - Import Complete",
			expectMessage: "Imported: Abbey Road\nLocation: /library/Beatles/Abbey Road",
			expectTags:    "platter,import,completed",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("catalog unreachable"), "fetch")
			},
			expectTitle:    "Platter - Error",
			expectMessage:  "Error with fetch: catalog unreachable",
			expectTags:     "platter,error,alert",
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
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
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
			if err := tc.notify(svc); err != nil {
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

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Decisions = false
	cfg.Notifications.Duplicates = false
	cfg.Notifications.Imports = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifyDecisionRequired(ctx, "x", "low"); err != nil {
		t.Fatalf("disabled decision event returned error: %v", err)
	}
	if err := svc.NotifyDuplicateFound(ctx, "x", 1); err != nil {
		t.Fatalf("disabled duplicate event returned error: %v", err)
	}
	if err := svc.NotifyImportCompleted(ctx, "x", ""); err != nil {
		t.Fatalf("disabled import event returned error: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "fetch"); err != nil {
		t.Fatalf("disabled error event returned error: %v", err)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
