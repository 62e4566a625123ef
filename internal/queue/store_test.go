package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"platter/internal/queue"
	"platter/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewUnit(ctx, "/music/incoming/album", "Artist - Album", "fp-1", `{"root":"/music/incoming/album"}`)
	if err != nil {
		t.Fatalf("NewUnit failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("new item status = %s", item.Status)
	}
	if item.CorrelationID == "" {
		t.Fatal("expected correlation id to be assigned")
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.UnitTitle != "Artist - Album" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}

	found, err := store.FindByFingerprint(ctx, "fp-1")
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", found)
	}
}

func TestUpdatePersistsPayloads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewUnitItem(t, store, "/music/a", "A", "fp-update")
	item.Status = queue.StatusCandidatesFetched
	item.CandidatesJSON = `[{"release_id":"rel-1"}]`
	item.Recommendation = "strong"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusCandidatesFetched {
		t.Fatalf("status = %s", fetched.Status)
	}
	if fetched.CandidatesJSON != item.CandidatesJSON {
		t.Fatalf("candidates json = %q", fetched.CandidatesJSON)
	}
	if fetched.Recommendation != "strong" {
		t.Fatalf("recommendation = %q", fetched.Recommendation)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name          string
		initialStatus queue.Status
		expected      queue.Status
	}{
		{"fetching", queue.StatusFetching, queue.StatusPending},
		{"matching", queue.StatusMatching, queue.StatusCandidatesFetched},
		{"deciding", queue.StatusDeciding, queue.StatusAwaitingDecision},
		{"duplicate_check", queue.StatusDuplicateCheck, queue.StatusAwaitingDecision},
		{"applying", queue.StatusApplying, queue.StatusResolved},
	}
	var ids []int64
	for i, tc := range cases {
		item := testsupport.NewUnitItem(t, store, fmt.Sprintf("/music/%s", tc.name), tc.name, fmt.Sprintf("fp-reset-%d", i))
		item.Status = tc.initialStatus
		item.ProgressStage = tc.name
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(cases) {
		t.Fatalf("expected %d items reset, got %d", len(cases), count)
	}

	for idx, tc := range cases {
		updated, err := store.GetByID(ctx, ids[idx])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != tc.expected {
			t.Fatalf("%s: expected status %s, got %s", tc.name, tc.expected, updated.Status)
		}
		if updated.LastHeartbeat != nil {
			t.Fatalf("%s: expected heartbeat cleared", tc.name)
		}
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := testsupport.NewUnitItem(t, store, "/music/stale", "Stale", "fp-stale")
	stale.Status = queue.StatusMatching
	old := time.Now().Add(-time.Hour).UTC()
	stale.LastHeartbeat = &old
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// A task blocked on a human decision must never be reclaimed.
	waiting := testsupport.NewUnitItem(t, store, "/music/waiting", "Waiting", "fp-waiting")
	waiting.Status = queue.StatusDeciding
	waiting.LastHeartbeat = &old
	if err := store.Update(ctx, waiting); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh := testsupport.NewUnitItem(t, store, "/music/fresh", "Fresh", "fp-fresh")
	fresh.Status = queue.StatusFetching
	now := time.Now().UTC()
	fresh.LastHeartbeat = &now
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed, got %d", count)
	}

	reclaimed, _ := store.GetByID(ctx, stale.ID)
	if reclaimed.Status != queue.StatusCandidatesFetched {
		t.Fatalf("stale status = %s", reclaimed.Status)
	}
	untouched, _ := store.GetByID(ctx, waiting.ID)
	if untouched.Status != queue.StatusDeciding {
		t.Fatalf("waiting status = %s", untouched.Status)
	}
	running, _ := store.GetByID(ctx, fresh.ID)
	if running.Status != queue.StatusFetching {
		t.Fatalf("fresh status = %s", running.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewUnitItem(t, store, "/music/f1", "F1", "fp-f1")
	first.SetFailed("fetch exploded")
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	second := testsupport.NewUnitItem(t, store, "/music/f2", "F2", "fp-f2")
	second.SetFailed("apply exploded")
	if err := store.Update(ctx, second); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, first.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried, got %d", count)
	}

	retried, _ := store.GetByID(ctx, first.ID)
	if retried.Status != queue.StatusPending || retried.ErrorMessage != "" {
		t.Fatalf("retried item = %#v", retried)
	}
	left, _ := store.GetByID(ctx, second.ID)
	if left.Status != queue.StatusFailed {
		t.Fatalf("unrequested item status = %s", left.Status)
	}

	count, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected remaining 1 retried, got %d", count)
	}
}

func TestNextForStatusesOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewUnitItem(t, store, "/music/one", "One", "fp-one")
	testsupport.NewUnitItem(t, store, "/music/two", "Two", "fp-two")

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending item, got %#v", next)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusApplying)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no applying items, got %#v", none)
	}
}

func TestHealthAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pending := testsupport.NewUnitItem(t, store, "/music/p", "P", "fp-p")
	_ = pending

	done := testsupport.NewUnitItem(t, store, "/music/d", "D", "fp-d")
	done.Status = queue.StatusDone
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	waiting := testsupport.NewUnitItem(t, store, "/music/w", "W", "fp-w")
	waiting.Status = queue.StatusAwaitingDecision
	if err := store.Update(ctx, waiting); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Done != 1 || health.Waiting != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}

	dbHealth, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !dbHealth.DatabaseExists || !dbHealth.TableExists || !dbHealth.IntegrityCheck {
		t.Fatalf("unexpected db health: %#v", dbHealth)
	}
	if len(dbHealth.MissingColumns) != 0 {
		t.Fatalf("missing columns: %v", dbHealth.MissingColumns)
	}
}

func TestClearVariants(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	statuses := []queue.Status{queue.StatusDone, queue.StatusFailed, queue.StatusAborted, queue.StatusPending}
	for i, status := range statuses {
		item := testsupport.NewUnitItem(t, store, fmt.Sprintf("/music/c%d", i), "C", fmt.Sprintf("fp-c%d", i))
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	cleared, err := store.ClearCompleted(ctx)
	if err != nil || cleared != 1 {
		t.Fatalf("ClearCompleted = %d, %v", cleared, err)
	}
	cleared, err = store.ClearFailed(ctx)
	if err != nil || cleared != 2 {
		t.Fatalf("ClearFailed = %d, %v", cleared, err)
	}
	cleared, err = store.Clear(ctx)
	if err != nil || cleared != 1 {
		t.Fatalf("Clear = %d, %v", cleared, err)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Awaiting_Decision "); !ok || status != queue.StatusAwaitingDecision {
		t.Fatalf("ParseStatus = %s, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("bogus status parsed")
	}
}

func TestLaneForStatus(t *testing.T) {
	if lane := queue.LaneForStatus(queue.StatusAwaitingDecision); lane != queue.LaneDecide {
		t.Fatalf("lane = %s", lane)
	}
	if lane := queue.LaneForStatus(queue.StatusPending); lane != queue.LaneMatch {
		t.Fatalf("lane = %s", lane)
	}
}
