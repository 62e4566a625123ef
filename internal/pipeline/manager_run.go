package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"platter/internal/logging"
	"platter/internal/queue"
)

// Start begins background processing. Tasks interrupted by a previous
// unclean shutdown are rolled back to the start of their stage first.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("pipeline already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil || len(lane.statusOrder) == 0 {
			continue
		}
		lanes = append(lanes, lane)
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("pipeline stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for _, lane := range lanes {
		lane.logger = m.logger.With(logging.String(logging.FieldLane, lane.name))
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		m.logger.Warn("reset of interrupted tasks failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"))
	} else if reset > 0 {
		m.logger.Info("rolled back interrupted tasks", logging.Int64("count", reset))
	}

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}

	return nil
}

// Stop terminates background processing and waits for the lanes to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	logger := lane.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if lane.runReclaimer {
			if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil {
				logger.Warn("reclaim stale processing failed; stuck tasks may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check queue database access"))
			}
		}

		item, err := m.store.NextForStatuses(ctx, lane.statusOrder...)
		if err != nil {
			m.handleNextItemError(ctx, logger, err)
			continue
		}
		if item == nil {
			m.checkQueueCompletion(ctx)
			m.waitForItemOrShutdown(ctx)
			continue
		}

		parked, err := m.processItem(ctx, lane, logger, item)
		if err != nil && errors.Is(err, context.Canceled) {
			return
		}
		// A parked task is waiting for an external decision; polling it hot
		// would spin.
		if parked {
			m.waitForItemOrShutdown(ctx)
		}
	}
}

func (m *Manager) handleNextItemError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next queue task",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

// checkQueueCompletion fires the queue-drained notification once all lanes
// run dry after activity.
func (m *Manager) checkQueueCompletion(ctx context.Context) {
	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	active := false
	for _, lane := range m.lanes {
		for _, status := range lane.statusOrder {
			items, err := m.store.ItemsByStatus(ctx, status)
			if err != nil || len(items) > 0 {
				active = true
				break
			}
		}
	}
	if active {
		m.mu.Unlock()
		return
	}
	processed, failed := m.processed, m.failed
	duration := time.Since(m.queueStart)
	m.queueActive = false
	m.processed = 0
	m.failed = 0
	m.mu.Unlock()

	if err := m.notifier.NotifyQueueCompleted(ctx, processed, failed, duration); err != nil {
		m.logger.Debug("queue completion notification failed", logging.Error(err))
	}
}

func (m *Manager) noteItemStarted(ctx context.Context) {
	m.mu.Lock()
	wasActive := m.queueActive
	if !wasActive {
		m.queueActive = true
		m.queueStart = time.Now()
	}
	m.mu.Unlock()

	if !wasActive {
		count := 0
		if items, err := m.store.List(ctx); err == nil {
			for _, item := range items {
				if !queue.IsTerminalStatus(item.Status) {
					count++
				}
			}
		}
		if err := m.notifier.NotifyQueueStarted(ctx, count); err != nil {
			m.logger.Debug("queue start notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) noteItemFinished(status queue.Status) {
	m.mu.Lock()
	switch status {
	case queue.StatusDone, queue.StatusSkipped:
		m.processed++
	case queue.StatusFailed, queue.StatusAborted:
		m.failed++
	}
	m.mu.Unlock()
}
