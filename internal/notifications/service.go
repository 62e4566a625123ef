package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"platter/internal/config"
)

const userAgent = "platter/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyDecisionRequired(ctx context.Context, unitTitle, recommendation string) error
	NotifyDuplicateFound(ctx context.Context, unitTitle string, conflicts int) error
	NotifyImportCompleted(ctx context.Context, unitTitle, destination string) error
	NotifyQueueStarted(ctx context.Context, count int) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
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
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		decisions:  cfg.Notifications.Decisions,
		duplicates: cfg.Notifications.Duplicates,
		imports:    cfg.Notifications.Imports,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	decisions  bool
	duplicates bool
	imports    bool
	errors     bool
}

func (n *ntfyService) NotifyDecisionRequired(ctx context.Context, unitTitle, recommendation string) error {
	if !n.decisions {
		return nil
	}
	unitTitle = strings.TrimSpace(unitTitle)
	recommendation = strings.TrimSpace(recommendation)
	if recommendation == "" {
		recommendation = "none"
	}
	data := payload{
		title:    "Platter - Decision Required",
		message:  fmt.Sprintf("Awaiting decision: %s (recommendation: %s)", unitTitle, recommendation),
		tags:     []string{"platter", "decision", "waiting"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDuplicateFound(ctx context.Context, unitTitle string, conflicts int) error {
	if !n.duplicates {
		return nil
	}
	unitTitle = strings.TrimSpace(unitTitle)
	data := payload{
		title:   "Platter - Duplicate Found",
		message: fmt.Sprintf("Duplicate conflict: %s (%d existing)", unitTitle, conflicts),
		tags:    []string{"platter", "duplicate", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyImportCompleted(ctx context.Context, unitTitle, destination string) error {
	if !n.imports {
		return nil
	}
	unitTitle = strings.TrimSpace(unitTitle)
	destination = strings.TrimSpace(destination)
	message := fmt.Sprintf("Imported: %s", unitTitle)
	if destination != "" {
		message = fmt.Sprintf("%s\nLocation: %s", message, destination)
	}
	data := payload{
		title:   "Platter - Import Complete",
		message: message,
		tags:    []string{"platter", "import", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueStarted(ctx context.Context, count int) error {
	data := payload{
		title:   "Platter - Queue Started",
		message: fmt.Sprintf("Started processing queue with %d tasks", count),
		tags:    []string{"platter", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 {
		title = "Platter - Queue Complete"
		message = fmt.Sprintf("Queue processing complete: %d tasks processed in %s", processed, durationText)
	} else {
		title = "Platter - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"platter", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Platter - Error",
		message:  builder.String(),
		tags:     []string{"platter", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Platter - Test",
		message:  "Notification system test",
		tags:     []string{"platter", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

func (noopService) NotifyDecisionRequired(context.Context, string, string) error        { return nil }
func (noopService) NotifyDuplicateFound(context.Context, string, int) error             { return nil }
func (noopService) NotifyImportCompleted(context.Context, string, string) error         { return nil }
func (noopService) NotifyQueueStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
