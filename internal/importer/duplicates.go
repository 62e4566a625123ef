package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"platter/internal/library"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/services"
	"platter/internal/stage"
)

// DuplicateChecker runs every accepted match past the duplicate detector
// before it resolves. Conflicts block for a resolution action; the detector
// itself never writes, and the chosen resolution is carried to the applier.
type DuplicateChecker struct {
	detector *library.Detector
	provider Provider
	notifier notifications.Service
	logger   *slog.Logger
}

// NewDuplicateChecker builds the duplicate check stage handler.
func NewDuplicateChecker(detector *library.Detector, provider Provider, notifier notifications.Service, logger *slog.Logger) *DuplicateChecker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DuplicateChecker{detector: detector, provider: provider, notifier: notifier, logger: logger}
}

// SetLogger swaps in a logger carrying task context.
func (c *DuplicateChecker) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

func (c *DuplicateChecker) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := stage.DecodeUnit(item); err != nil {
		return err
	}
	_, err := stage.DecodeMatch(item)
	return err
}

func (c *DuplicateChecker) Execute(ctx context.Context, item *queue.Item) error {
	unit, err := stage.DecodeUnit(item)
	if err != nil {
		return err
	}
	match, err := stage.DecodeMatch(item)
	if err != nil {
		return err
	}

	if c.detector == nil {
		return nil
	}

	set, err := c.detector.Detect(ctx, unit, match.Release)
	if err != nil {
		return err
	}
	if set.Empty() {
		item.SetProgress("Duplicate Check", "No conflicts", 100)
		return nil
	}

	c.logger.Info("duplicate conflicts found",
		logging.String(logging.FieldUnit, unit.Root),
		logging.Int("conflicts", len(set.Entries)))
	if c.notifier != nil {
		if err := c.notifier.NotifyDuplicateFound(ctx, item.UnitTitle, len(set.Entries)); err != nil {
			c.logger.Debug("duplicate notification failed", logging.Error(err))
		}
	}

	if c.provider == nil {
		item.NeedsReview = true
		item.ReviewReason = "Duplicate conflict awaiting resolution"
		item.Status = queue.StatusDuplicateCheck
		return nil
	}

	resolution, err := c.provider.ResolveDuplicate(ctx, item, set)
	if errors.Is(err, ErrNoDecision) {
		item.NeedsReview = true
		item.ReviewReason = "Duplicate conflict awaiting resolution"
		item.Status = queue.StatusDuplicateCheck
		return nil
	}
	if err != nil {
		return services.Wrap(services.ErrValidation, "duplicate_check", "prompt", "resolution provider failed", err)
	}
	if _, ok := library.ParseResolution(string(resolution)); !ok {
		return services.Wrap(services.ErrValidation, "duplicate_check", "resolution",
			fmt.Sprintf("unknown resolution %q", resolution), nil)
	}

	if resolution == library.ResolutionSkip {
		item.Status = queue.StatusSkipped
		item.NeedsReview = false
		item.ReviewReason = ""
		item.SetProgress("Skipped", "Duplicate of an existing catalog entry", 100)
		return nil
	}

	match.Duplicates = &stage.DuplicateOutcome{Conflicts: len(set.Entries), Resolution: string(resolution)}
	if err := stage.EncodeMatch(item, match); err != nil {
		return err
	}
	item.NeedsReview = false
	item.ReviewReason = ""
	item.SetProgress("Duplicate Check", fmt.Sprintf("Resolved %d conflicts: %s", len(set.Entries), resolution), 100)
	return nil
}

func (c *DuplicateChecker) HealthCheck(ctx context.Context) stage.Health {
	if c.detector == nil {
		return stage.Unhealthy("duplicate-checker", "detector not configured")
	}
	return stage.Healthy("duplicate-checker")
}
