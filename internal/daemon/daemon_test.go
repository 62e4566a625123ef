package daemon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"platter/internal/daemon"
	"platter/internal/importer"
	"platter/internal/queue"
	"platter/internal/resume"
	"platter/internal/testsupport"
)

func newCatalogStub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDaemonEnqueueDeduplicates(t *testing.T) {
	server := newCatalogStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithCatalogURL(server.URL))

	d, err := daemon.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer d.Close()

	unit := testsupport.NewUnit(t, "Broadcast", "Tender Buttons", 3)

	ctx := context.Background()
	item, created, err := d.Enqueue(ctx, unit)
	if err != nil || !created {
		t.Fatalf("Enqueue = (%v, %v, %v), want new task", item, created, err)
	}
	again, createdAgain, err := d.Enqueue(ctx, unit)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if createdAgain || again.ID != item.ID {
		t.Fatalf("re-enqueue created a new task: %d vs %d", again.ID, item.ID)
	}
}

func TestDaemonRunOnceAppliesScriptedDecision(t *testing.T) {
	server := newCatalogStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithCatalogURL(server.URL), testsupport.WithAutoAccept("never"))

	provider := &testsupport.ScriptedProvider{
		Decisions: []importer.Decision{{Action: importer.ActionSkip}},
	}
	d, err := daemon.New(cfg, provider, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer d.Close()

	unit := testsupport.NewUnit(t, "Broadcast", "Tender Buttons", 3)
	ctx := context.Background()
	if _, _, err := d.Enqueue(ctx, unit); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	summary, err := d.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Skipped != 1 || summary.Completed != 0 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want one skipped task", summary)
	}

	items, err := d.Store().List(ctx, queue.StatusSkipped)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d skipped tasks, want 1", len(items))
	}
	if entry, found := d.ResumeLog().Lookup(unit.Identity()); !found || entry.State != resume.StateSkipped {
		t.Fatalf("resume entry = %+v (found=%v), want skipped", entry, found)
	}
}

func TestDaemonRunOnceParksWithoutDecision(t *testing.T) {
	server := newCatalogStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithCatalogURL(server.URL), testsupport.WithAutoAccept("never"))

	d, err := daemon.New(cfg, &testsupport.ScriptedProvider{}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer d.Close()

	unit := testsupport.NewUnit(t, "Broadcast", "Tender Buttons", 3)
	ctx := context.Background()
	if _, _, err := d.Enqueue(ctx, unit); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	summary, err := d.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Parked != 1 {
		t.Fatalf("summary = %+v, want one parked task", summary)
	}

	items, err := d.Store().List(ctx, queue.StatusAwaitingDecision)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || !items[0].NeedsReview {
		t.Fatalf("expected one task awaiting decision, got %d", len(items))
	}
}

func TestDaemonStartIsExclusive(t *testing.T) {
	server := newCatalogStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithCatalogURL(server.URL))

	d, err := daemon.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail while running")
	}
	d.Stop()
}
