package pipeline_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"platter/internal/config"
	"platter/internal/importer"
	"platter/internal/library"
	"platter/internal/metadata"
	"platter/internal/musicbrainz"
	"platter/internal/pipeline"
	"platter/internal/queue"
	"platter/internal/recommend"
	"platter/internal/resume"
	"platter/internal/stage"
	"platter/internal/testsupport"
)

type staticSource struct {
	releases []*metadata.CandidateRelease
}

func (s *staticSource) Search(ctx context.Context, query musicbrainz.Query) ([]*metadata.CandidateRelease, error) {
	return s.releases, nil
}

func (s *staticSource) LookupByID(ctx context.Context, id string) (*metadata.CandidateRelease, error) {
	return nil, nil
}

func (s *staticSource) LookupByFingerprint(ctx context.Context, fingerprint string) ([]*metadata.CandidateRelease, error) {
	return nil, nil
}

type harness struct {
	store     *queue.Store
	catalog   *library.Store
	resumeLog *resume.Log
	manager   *pipeline.Manager
	unit      *metadata.LocalUnit
	item      *queue.Item
}

// newHarness wires a full pipeline over fakes: a static retrieval source
// serving a perfect candidate, an empty library catalog, and the provider
// supplied by the caller.
func newHarness(t *testing.T, autoAccept string, provider func(*config.Config) importer.Provider) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithAutoAccept(autoAccept))
	cfg.Workflow.QueuePollInterval = 0
	store := testsupport.MustOpenStore(t, cfg)

	catalog, err := library.OpenPath(cfg.Paths.LibraryDB)
	if err != nil {
		t.Fatalf("library.OpenPath: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })

	resumeLog := resume.Open(filepath.Join(testsupport.BaseDir(cfg), "resume.log"), nil)

	unit := testsupport.NewUnit(t, "Stereolab", "Dots and Loops", 4)
	candidate := testsupport.NewCandidate(unit)
	prov := provider(cfg)

	fetcher := importer.NewFetcher(cfg, &staticSource{releases: []*metadata.CandidateRelease{candidate}}, resumeLog, nil)
	matcher := importer.NewMatcher(cfg, nil, nil)
	decider := importer.NewDecider(store, prov, nil)
	detector := library.NewDetector(catalog, cfg.Duplicates, nil, nil)
	checker := importer.NewDuplicateChecker(detector, prov, nil, nil)
	applier := importer.NewApplier(catalog, nil, nil, nil, resumeLog, nil, nil)

	manager := pipeline.NewManager(cfg, store, resumeLog, nil, nil)
	manager.ConfigureStages(pipeline.StageSet{
		Fetcher:          fetcher,
		Matcher:          matcher,
		Decider:          decider,
		DuplicateChecker: checker,
		Applier:          applier,
	})

	item := testsupport.NewUnitItem(t, store, unit.Root, unit.Album(), unit.Identity())
	if err := stage.EncodeUnit(item, unit); err != nil {
		t.Fatalf("EncodeUnit: %v", err)
	}
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("store.Update: %v", err)
	}

	return &harness{
		store:     store,
		catalog:   catalog,
		resumeLog: resumeLog,
		manager:   manager,
		unit:      unit,
		item:      item,
	}
}

func autoProvider(cfg *config.Config) importer.Provider {
	return importer.NewAutoProvider(recommend.NewEngine(cfg.Thresholds))
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if item != nil && item.Status == want {
			return item
		}
		time.Sleep(20 * time.Millisecond)
	}
	item, _ := store.GetByID(context.Background(), id)
	t.Fatalf("task never reached %s (last: %+v)", want, item)
	return nil
}

func TestManagerProcessesTaskToDone(t *testing.T) {
	h := newHarness(t, "strong", autoProvider)

	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.manager.Stop()

	done := waitForStatus(t, h.store, h.item.ID, queue.StatusDone)
	if done.ErrorMessage != "" {
		t.Fatalf("unexpected error message: %q", done.ErrorMessage)
	}

	entries, err := h.catalog.List(context.Background())
	if err != nil {
		t.Fatalf("catalog.List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d catalog entries, want 1", len(entries))
	}
	if !h.resumeLog.ShouldSkip(h.unit.Identity()) {
		t.Fatal("completed unit missing from resume log")
	}
}

func TestManagerParksTaskAwaitingDecision(t *testing.T) {
	h := newHarness(t, "never", func(*config.Config) importer.Provider {
		return &testsupport.ScriptedProvider{}
	})

	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.manager.Stop()

	parked := waitForStatus(t, h.store, h.item.ID, queue.StatusAwaitingDecision)
	if !parked.NeedsReview {
		t.Fatal("parked task should be flagged for review")
	}

	// The decide lane keeps polling; the task must stay parked.
	time.Sleep(100 * time.Millisecond)
	again, err := h.store.GetByID(context.Background(), h.item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if again.Status != queue.StatusAwaitingDecision {
		t.Fatalf("parked task moved to %s", again.Status)
	}
}

func TestManagerRecordsSkipInResumeLog(t *testing.T) {
	h := newHarness(t, "never", func(*config.Config) importer.Provider {
		return &testsupport.ScriptedProvider{
			Decisions: []importer.Decision{{Action: importer.ActionSkip}},
		}
	})

	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.manager.Stop()

	waitForStatus(t, h.store, h.item.ID, queue.StatusSkipped)
	entry, found := h.resumeLog.Lookup(h.unit.Identity())
	if !found || entry.State != resume.StateSkipped {
		t.Fatalf("resume entry = %+v (found=%v), want skipped", entry, found)
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := pipeline.NewManager(cfg, store, nil, nil, nil)
	if err := manager.Start(context.Background()); err == nil {
		manager.Stop()
		t.Fatal("expected error when no stages configured")
	}
}

func TestManagerHealthReportsEveryStage(t *testing.T) {
	h := newHarness(t, "strong", autoProvider)

	checks := h.manager.Health(context.Background())
	if len(checks) != 5 {
		t.Fatalf("got %d health checks, want 5", len(checks))
	}
	for _, check := range checks {
		if !check.Ready {
			t.Fatalf("stage %s not ready: %s", check.Name, check.Detail)
		}
	}
}
