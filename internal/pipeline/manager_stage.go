package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"platter/internal/logging"
	"platter/internal/queue"
	"platter/internal/resume"
	"platter/internal/services"
	"platter/internal/stage"
)

// processItem runs the stage that owns the item's status. It reports
// parked=true when the stage left the task at its start status waiting for an
// external decision, so the lane backs off instead of polling it hot.
func (m *Manager) processItem(ctx context.Context, lane *laneState, laneLogger *slog.Logger, item *queue.Item) (bool, error) {
	stg, ok := lane.stageForStatus(item.Status)
	if !ok {
		laneLogger.Warn("no stage configured for status", logging.String("status", string(item.Status)))
		m.waitForItemOrShutdown(ctx)
		return false, nil
	}

	requestID := strings.TrimSpace(item.CorrelationID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	stageCtx := services.WithStage(ctx, stg.name)
	stageCtx = services.WithTaskID(stageCtx, item.ID)
	stageCtx = services.WithLane(stageCtx, lane.name)
	stageCtx = services.WithRequestID(stageCtx, requestID)

	stageLogger := logging.WithContext(stageCtx, laneLogger)
	if aware, ok := stg.handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if err := m.transitionToProcessing(stageCtx, stg, item); err != nil {
		stageLogger.Error("failed to transition task to processing", logging.Error(err))
		m.setLastError(err)
		return false, err
	}

	return m.executeStage(stageCtx, stageLogger, stg, item)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, item *queue.Item) (bool, error) {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("unit_title", strings.TrimSpace(item.UnitTitle)),
		logging.String(logging.FieldUnit, strings.TrimSpace(item.UnitPath)),
	)

	if err := stg.handler.Prepare(ctx, item); err != nil {
		m.handleStageFailure(ctx, stageLogger, stg.name, item, err)
		m.setLastError(err)
		return false, err
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return false, wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, stg.handler, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return false, execErr
		}
		m.handleStageFailure(ctx, stageLogger, stg.name, item, execErr)
		m.setLastError(execErr)
		return false, execErr
	}

	// A parked task stayed at the stage's start status waiting on a
	// decision. It must not be promoted.
	parked := item.NeedsReview && item.Status == stg.startStatus
	if !parked && (item.Status == stg.processingStatus || item.Status == "") {
		item.Status = stg.doneStatus
	}
	item.LastHeartbeat = nil
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return parked, wrapped
	}

	if parked {
		stageLogger.Debug(
			"stage parked awaiting decision",
			logging.String(logging.FieldEventType, "stage_parked"),
			logging.String("review_reason", strings.TrimSpace(item.ReviewReason)),
		)
		return true, nil
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.String("progress_stage", strings.TrimSpace(item.ProgressStage)),
		logging.String("progress_message", strings.TrimSpace(item.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)

	m.recordTerminalState(item, stageLogger)
	if queue.IsTerminalStatus(item.Status) {
		m.noteItemFinished(item.Status)
	}
	m.checkQueueCompletion(ctx)
	return false, nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, item *queue.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	execErr := handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, stg pipelineStage, item *queue.Item) error {
	if stg.processingStatus == "" {
		return errors.New("processing status must not be empty")
	}

	now := time.Now().UTC()
	item.Status = stg.processingStatus
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.noteItemStarted(ctx)
	return nil
}

func (m *Manager) handleStageFailure(ctx context.Context, stageLogger *slog.Logger, stageName string, item *queue.Item, stageErr error) {
	message := "stage failed"
	if stageErr != nil {
		message = strings.TrimSpace(stageErr.Error())
	}

	resolved := services.FailureStatus(stageErr)
	if resolved == queue.StatusAborted {
		item.SetAborted(message)
	} else {
		item.SetFailed(message)
	}

	stageLogger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)
	if err := m.store.Update(ctx, item); err != nil {
		stageLogger.Error("failed to persist stage failure", logging.Error(err))
	}

	m.recordTerminalState(item, stageLogger)
	m.noteItemFinished(item.Status)

	if stageErr != nil {
		contextLabel := fmt.Sprintf("%s (task #%d)", stageName, item.ID)
		if err := m.notifier.NotifyError(ctx, stageErr, contextLabel); err != nil {
			stageLogger.Debug("stage error notification failed", logging.Error(err))
		}
	}
}

// recordTerminalState mirrors skipped and aborted outcomes into the resume
// log so a rescan of the same directory does not re-import it. Done entries
// are written by the apply stage itself.
func (m *Manager) recordTerminalState(item *queue.Item, stageLogger *slog.Logger) {
	if m.resumeLog == nil || item.UnitFingerprint == "" {
		return
	}
	var state resume.State
	switch item.Status {
	case queue.StatusSkipped:
		state = resume.StateSkipped
	case queue.StatusAborted:
		state = resume.StateAborted
	default:
		return
	}
	if err := m.resumeLog.Record(item.UnitFingerprint, state, item.UnitPath); err != nil {
		stageLogger.Warn("failed to record resume state", logging.Error(err))
	}
}
