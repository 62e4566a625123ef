package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"platter/internal/config"
	"platter/internal/importer"
	"platter/internal/library"
	"platter/internal/logging"
	"platter/internal/metadata"
	"platter/internal/musicbrainz"
	"platter/internal/notifications"
	"platter/internal/pipeline"
	"platter/internal/queue"
	"platter/internal/resume"
	"platter/internal/retrieval"
)

// Daemon owns the import pipeline's shared state and enforces
// single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	catalog   *library.Store
	resumeLog *resume.Log
	notifier  notifications.Service
	manager   *pipeline.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New builds a daemon with all pipeline collaborators wired. The decision
// provider determines how tasks blocked on a choice proceed; a nil provider
// leaves them parked for a later interactive session.
func New(cfg *config.Config, provider importer.Provider, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	catalog, err := library.Open(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open library store: %w", err)
	}

	resumeLog := resume.Open(cfg.ResumeLogPath(), logger)
	notifier := notifications.NewService(cfg)

	source, err := buildSource(cfg)
	if err != nil {
		store.Close()
		catalog.Close()
		return nil, err
	}

	detector := library.NewDetector(catalog, cfg.Duplicates, nil, logger)

	manager := pipeline.NewManager(cfg, store, resumeLog, notifier, logger)
	manager.ConfigureStages(pipeline.StageSet{
		Fetcher:          importer.NewFetcher(cfg, source, resumeLog, logger),
		Matcher:          importer.NewMatcher(cfg, notifier, logger),
		Decider:          importer.NewDecider(store, provider, logger),
		DuplicateChecker: importer.NewDuplicateChecker(detector, provider, notifier, logger),
		Applier: importer.NewApplier(
			catalog,
			nil,
			&importer.PathPlanner{Root: cfg.Paths.LibraryDir},
			nil,
			resumeLog,
			notifier,
			logger,
		),
	})

	lockPath := cfg.LockFilePath()
	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		catalog:   catalog,
		resumeLog: resumeLog,
		notifier:  notifier,
		manager:   manager,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

func buildSource(cfg *config.Config) (retrieval.Source, error) {
	client, err := musicbrainz.New(
		cfg.MusicBrainz.BaseURL,
		cfg.MusicBrainz.UserAgent,
		musicbrainz.WithRateLimit(time.Duration(cfg.MusicBrainz.RateLimitMillis)*time.Millisecond),
		musicbrainz.WithLimit(cfg.MusicBrainz.MaxCandidates),
	)
	if err != nil {
		return nil, fmt.Errorf("build catalog client: %w", err)
	}
	var source retrieval.Source = retrieval.NewCatalogSource(client)
	if ttl := time.Duration(cfg.MusicBrainz.CacheTTLMinutes) * time.Minute; ttl > 0 {
		source = retrieval.NewCachedSource(source, ttl)
	}
	return source, nil
}

// Start acquires the instance lock and launches the pipeline lanes.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another platter instance is already running over this state directory")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.manager.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start pipeline: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("platter daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the pipeline and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("platter daemon stopped")
}

// Close stops the daemon and releases the underlying stores.
func (d *Daemon) Close() error {
	d.Stop()
	var firstErr error
	if d.catalog != nil {
		firstErr = d.catalog.Close()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RunOnce drains the queue synchronously under the instance lock. It is the
// CLI import path; the daemon lanes are never started.
func (d *Daemon) RunOnce(ctx context.Context) (pipeline.RunSummary, error) {
	ok, err := d.lock.TryLock()
	if err != nil {
		return pipeline.RunSummary{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return pipeline.RunSummary{}, errors.New("another platter instance is already running over this state directory")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	return d.manager.ProcessQueue(ctx)
}

// Enqueue registers a scanned unit as a pending import task. Units already
// queued under the same fingerprint return the existing task.
func (d *Daemon) Enqueue(ctx context.Context, unit *metadata.LocalUnit) (*queue.Item, bool, error) {
	identity := unit.Identity()
	if existing, err := d.store.FindByFingerprint(ctx, identity); err != nil {
		return nil, false, err
	} else if existing != nil && !queue.IsTerminalStatus(existing.Status) {
		return existing, false, nil
	}

	raw, err := json.Marshal(unit)
	if err != nil {
		return nil, false, fmt.Errorf("serialize unit: %w", err)
	}
	item, err := d.store.NewUnit(ctx, unit.Root, unit.Album(), identity, string(raw))
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// Store exposes the queue store for CLI maintenance commands.
func (d *Daemon) Store() *queue.Store {
	return d.store
}

// Catalog exposes the library store.
func (d *Daemon) Catalog() *library.Store {
	return d.catalog
}

// ResumeLog exposes the resume log.
func (d *Daemon) ResumeLog() *resume.Log {
	return d.resumeLog
}

// Manager exposes the pipeline manager for health reporting.
func (d *Daemon) Manager() *pipeline.Manager {
	return d.manager
}

// TestNotification sends a test push using the configured topic.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.notifier.TestNotification(ctx)
}
