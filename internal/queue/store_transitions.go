package queue

import (
	"context"
	"fmt"
	"time"
)

// ResetStuckProcessing resets in-flight tasks back to the start of their
// current stage, used on startup after an unclean shutdown.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE import_tasks
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?, ?, ?, ?)`,
		StatusFetching, StatusPending,
		StatusMatching, StatusCandidatesFetched,
		StatusDeciding, StatusAwaitingDecision,
		StatusDuplicateCheck, StatusAwaitingDecision,
		StatusApplying, StatusResolved,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusFetching,
		StatusMatching,
		StatusDeciding,
		StatusDuplicateCheck,
		StatusApplying,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck tasks: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight task.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE import_tasks SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns tasks stuck in processing back to the start
// of their current stage when heartbeats expire. Tasks blocked on a human
// decision are excluded: a pending prompt is not a stall.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE import_tasks
        SET status = CASE status
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            ELSE status
        END,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusFetching, StatusPending,
		StatusMatching, StatusCandidatesFetched,
		StatusApplying, StatusResolved,
		now.Format(time.RFC3339Nano),
		StatusFetching,
		StatusMatching,
		StatusApplying,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale tasks: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed tasks back to pending for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE import_tasks
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed tasks: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE import_tasks
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected tasks: %w", err)
	}
	return res.RowsAffected()
}

// FailActive marks every non-terminal task failed with the given message,
// used when the daemon shuts down without finishing its queue.
func (s *Store) FailActive(ctx context.Context, message string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE import_tasks
        SET status = ?, error_message = ?, progress_stage = 'Failed',
            progress_percent = 0, progress_message = ?, last_heartbeat = NULL, updated_at = ?
        WHERE status NOT IN (?, ?, ?, ?)`,
		StatusFailed,
		message,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusDone,
		StatusSkipped,
		StatusAborted,
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("fail active tasks: %w", err)
	}
	return res.RowsAffected()
}
