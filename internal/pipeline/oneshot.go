package pipeline

import (
	"context"
	"errors"

	"platter/internal/logging"
	"platter/internal/queue"
)

// RunSummary reports the outcome of a synchronous queue pass.
type RunSummary struct {
	Completed int
	Skipped   int
	Parked    int
	Failed    int
}

// ProcessTask drives one task through every configured stage synchronously
// until it reaches a terminal status, parks awaiting a decision, or fails.
// This is the CLI's one-shot import path; the daemon lanes never call it.
func (m *Manager) ProcessTask(ctx context.Context, item *queue.Item) error {
	logger := m.logger
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		lane, ok := m.laneForStatus(item.Status)
		if !ok {
			return nil
		}
		parked, err := m.processItem(ctx, lane, logger, item)
		if err != nil {
			return err
		}
		if parked || queue.IsTerminalStatus(item.Status) {
			return nil
		}
	}
}

// ProcessQueue synchronously drains every runnable task, including tasks
// enqueued mid-pass by a singleton split. Tasks that park stay parked; the
// pass ends when only parked and terminal tasks remain.
func (m *Manager) ProcessQueue(ctx context.Context) (RunSummary, error) {
	var summary RunSummary

	if reset, err := m.store.ResetStuckProcessing(ctx); err != nil {
		return summary, err
	} else if reset > 0 {
		m.logger.Info("rolled back interrupted tasks", logging.Int64("count", reset))
	}

	statuses := m.runnableStatuses()
	if len(statuses) == 0 {
		return summary, errors.New("pipeline stages not configured")
	}

	parked := make(map[int64]struct{})
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		items, err := m.store.List(ctx, statuses...)
		if err != nil {
			return summary, err
		}

		progressed := false
		for _, item := range items {
			if _, done := parked[item.ID]; done {
				continue
			}
			progressed = true
			if err := m.ProcessTask(ctx, item); err != nil {
				if errors.Is(err, context.Canceled) {
					return summary, err
				}
				// The task was already marked failed or aborted; move on.
			}
			switch {
			case item.Status == queue.StatusDone:
				summary.Completed++
			case item.Status == queue.StatusSkipped:
				summary.Skipped++
			case queue.IsTerminalStatus(item.Status):
				summary.Failed++
			default:
				parked[item.ID] = struct{}{}
				summary.Parked++
			}
		}
		if !progressed {
			return summary, nil
		}
	}
}

func (m *Manager) laneForStatus(status queue.Status) (*laneState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil {
			continue
		}
		if _, ok := lane.stageForStatus(status); ok {
			return lane, true
		}
	}
	return nil, false
}

func (m *Manager) runnableStatuses() []queue.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var statuses []queue.Status
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil {
			continue
		}
		statuses = append(statuses, lane.statusOrder...)
	}
	return statuses
}
