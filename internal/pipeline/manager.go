package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/resume"
	"platter/internal/stage"
)

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	notifier     notifications.Service
	resumeLog    *resume.Log

	heartbeat *HeartbeatMonitor

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error

	queueActive bool
	queueStart  time.Time
	processed   int
	failed      int
}

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Fetcher          stage.Handler
	Matcher          stage.Handler
	Decider          stage.Handler
	DuplicateChecker stage.Handler
	Applier          stage.Handler
}

// NewManager constructs a pipeline manager.
func NewManager(cfg *config.Config, store *queue.Store, resumeLog *resume.Log, notifier notifications.Service, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		resumeLog:    resumeLog,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		lanes: make(map[laneKind]*laneState),
	}
}

// ConfigureStages registers the concrete stage handlers the pipeline runs.
// The match lane overlaps retrieval, matching, and apply work; the decide
// lane serializes everything waiting on a decision so prompts arrive one at
// a time.
func (m *Manager) ConfigureStages(set StageSet) {
	match := &laneState{kind: laneMatch, name: string(queue.LaneMatch)}
	decide := &laneState{kind: laneDecide, name: string(queue.LaneDecide)}

	if set.Fetcher != nil {
		match.stages = append(match.stages, pipelineStage{
			name:             "fetcher",
			handler:          set.Fetcher,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusFetching,
			doneStatus:       queue.StatusCandidatesFetched,
		})
	}
	if set.Matcher != nil {
		match.stages = append(match.stages, pipelineStage{
			name:             "matcher",
			handler:          set.Matcher,
			startStatus:      queue.StatusCandidatesFetched,
			processingStatus: queue.StatusMatching,
			doneStatus:       queue.StatusAwaitingDecision,
		})
	}
	if set.Decider != nil {
		decide.stages = append(decide.stages, pipelineStage{
			name:             "decider",
			handler:          set.Decider,
			startStatus:      queue.StatusAwaitingDecision,
			processingStatus: queue.StatusDeciding,
			doneStatus:       queue.StatusDuplicateCheck,
		})
	}
	if set.DuplicateChecker != nil {
		decide.stages = append(decide.stages, pipelineStage{
			name:             "duplicate-checker",
			handler:          set.DuplicateChecker,
			startStatus:      queue.StatusDuplicateCheck,
			processingStatus: queue.StatusDuplicateCheck,
			doneStatus:       queue.StatusResolved,
		})
	}
	if set.Applier != nil {
		match.stages = append(match.stages, pipelineStage{
			name:             "applier",
			handler:          set.Applier,
			startStatus:      queue.StatusResolved,
			processingStatus: queue.StatusApplying,
			doneStatus:       queue.StatusDone,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)
	if len(match.stages) > 0 {
		match.finalize()
		// Only the match lane reclaims: decision statuses are excluded from
		// heartbeat expiry by the store.
		match.runReclaimer = true
		lanes[match.kind] = match
		order = append(order, match.kind)
	}
	if len(decide.stages) > 0 {
		decide.finalize()
		lanes[decide.kind] = decide
		order = append(order, decide.kind)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}

// Health reports the readiness of every configured stage handler.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var checks []stage.Health
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil {
			continue
		}
		for _, stg := range lane.stages {
			checks = append(checks, stg.handler.HealthCheck(ctx))
		}
	}
	return checks
}

// LastError returns the most recent background processing error.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
