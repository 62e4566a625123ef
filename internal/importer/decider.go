package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"platter/internal/library"
	"platter/internal/logging"
	"platter/internal/metadata"
	"platter/internal/queue"
	"platter/internal/recommend"
	"platter/internal/services"
	"platter/internal/stage"
)

// DecisionAction enumerates the choices available at the decision prompt.
type DecisionAction string

const (
	ActionAcceptBest      DecisionAction = "accept_best"
	ActionAcceptCandidate DecisionAction = "accept_candidate"
	ActionAsIs            DecisionAction = "as_is"
	ActionSingletons      DecisionAction = "singletons"
	ActionNewSearch       DecisionAction = "new_search"
	ActionReleaseID       DecisionAction = "release_id"
	ActionSkip            DecisionAction = "skip"
	ActionAbort           DecisionAction = "abort"
)

// Decision is the outcome of one decision prompt.
type Decision struct {
	Action DecisionAction
	// CandidateIndex selects a candidate for ActionAcceptCandidate (0-based
	// into the scored list).
	CandidateIndex int
	// Artist and Album refine the search for ActionNewSearch.
	Artist string
	Album  string
	// ReleaseID supplies an explicit catalog identifier for ActionReleaseID.
	ReleaseID string
}

// ErrNoDecision signals that no decision is currently available; the task
// stays parked until one arrives.
var ErrNoDecision = errors.New("no decision available")

// Provider supplies decisions for tasks blocked on human (or scripted)
// input. Implementations return ErrNoDecision to leave a task waiting.
type Provider interface {
	Decide(ctx context.Context, item *queue.Item, set stage.CandidateSet) (Decision, error)
	ResolveDuplicate(ctx context.Context, item *queue.Item, set library.DuplicateSet) (library.Resolution, error)
}

// Decider consumes a decision for a task awaiting one and routes the task
// accordingly: into duplicate checking, back to retrieval with refined
// terms, or to a terminal state.
type Decider struct {
	store    *queue.Store
	provider Provider
	logger   *slog.Logger
}

// NewDecider builds the decision stage handler. The store is needed for the
// singleton split, which enqueues new per-track tasks.
func NewDecider(store *queue.Store, provider Provider, logger *slog.Logger) *Decider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Decider{store: store, provider: provider, logger: logger}
}

// SetLogger swaps in a logger carrying task context.
func (d *Decider) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

func (d *Decider) Prepare(ctx context.Context, item *queue.Item) error {
	_, err := stage.DecodeUnit(item)
	return err
}

func (d *Decider) Execute(ctx context.Context, item *queue.Item) error {
	unit, err := stage.DecodeUnit(item)
	if err != nil {
		return err
	}
	set, err := stage.DecodeCandidates(item)
	if err != nil {
		return err
	}

	if d.provider == nil {
		item.Status = queue.StatusAwaitingDecision
		return nil
	}

	decision, err := d.provider.Decide(ctx, item, set)
	if errors.Is(err, ErrNoDecision) {
		item.Status = queue.StatusAwaitingDecision
		return nil
	}
	if err != nil {
		return services.Wrap(services.ErrValidation, "decide", "prompt", "decision provider failed", err)
	}

	d.logger.Info("decision received",
		logging.String("action", string(decision.Action)),
		logging.String(logging.FieldUnit, unit.Root))

	switch decision.Action {
	case ActionAcceptBest:
		return d.accept(item, set, 0)

	case ActionAcceptCandidate:
		return d.accept(item, set, decision.CandidateIndex)

	case ActionAsIs:
		if err := stage.EncodeMatch(item, stage.Match{AsIs: true}); err != nil {
			return err
		}
		item.NeedsReview = false
		item.ReviewReason = ""
		item.SetProgress("Deciding", "Importing as-is", 100)
		return nil

	case ActionSingletons:
		return d.splitSingletons(ctx, item, unit)

	case ActionNewSearch:
		unit.SearchArtist = strings.TrimSpace(decision.Artist)
		unit.SearchAlbum = strings.TrimSpace(decision.Album)
		return d.refetch(item, unit, "New search requested")

	case ActionReleaseID:
		id := strings.TrimSpace(decision.ReleaseID)
		if id == "" {
			return services.Wrap(services.ErrValidation, "decide", "release id", "empty release identifier", nil)
		}
		unit.SearchReleaseID = id
		return d.refetch(item, unit, "Explicit release identifier supplied")

	case ActionSkip:
		item.Status = queue.StatusSkipped
		item.NeedsReview = false
		item.ReviewReason = ""
		item.SetProgress("Skipped", "Skipped by decision", 100)
		return nil

	case ActionAbort:
		item.SetAborted("Aborted by decision")
		return nil

	default:
		return services.Wrap(services.ErrValidation, "decide", "action",
			fmt.Sprintf("unknown decision action %q", decision.Action), nil)
	}
}

func (d *Decider) HealthCheck(ctx context.Context) stage.Health {
	if d.provider == nil {
		return stage.Unhealthy("decider", "no decision provider configured")
	}
	return stage.Healthy("decider")
}

func (d *Decider) accept(item *queue.Item, set stage.CandidateSet, index int) error {
	if index < 0 || index >= len(set.Candidates) {
		return services.Wrap(services.ErrValidation, "decide", "accept",
			fmt.Sprintf("candidate %d out of range (have %d)", index, len(set.Candidates)), nil)
	}
	chosen := set.Candidates[index]
	match := stage.Match{Release: chosen.Release, Total: chosen.Total, Alignment: chosen.Alignment}
	if err := stage.EncodeMatch(item, match); err != nil {
		return err
	}
	item.NeedsReview = false
	item.ReviewReason = ""
	item.SetProgress("Deciding", fmt.Sprintf("Accepted %q at distance %.3f", chosen.Release.Title, chosen.Total), 100)
	return nil
}

// refetch routes the task back to retrieval with updated search overrides.
func (d *Decider) refetch(item *queue.Item, unit *metadata.LocalUnit, reason string) error {
	if err := stage.EncodeUnit(item, unit); err != nil {
		return err
	}
	item.CandidatesJSON = ""
	item.MatchJSON = ""
	item.Recommendation = ""
	item.NeedsReview = false
	item.ReviewReason = ""
	item.Status = queue.StatusPending
	item.SetProgress("Deciding", reason, 0)
	return nil
}

// splitSingletons replaces an album-shaped task with one task per track, each
// a singleton unit retrieved and decided independently.
func (d *Decider) splitSingletons(ctx context.Context, item *queue.Item, unit *metadata.LocalUnit) error {
	if len(unit.Tracks) < 2 {
		unit.Singleton = true
		if err := stage.EncodeUnit(item, unit); err != nil {
			return err
		}
		return d.refetch(item, unit, "Retrying as singleton")
	}

	for _, track := range unit.Tracks {
		single := &metadata.LocalUnit{
			Root:      unit.Root,
			Tracks:    []metadata.LocalTrack{track},
			Singleton: true,
		}
		raw, err := json.Marshal(single)
		if err != nil {
			return services.Wrap(services.ErrValidation, "decide", "singletons", "singleton payload could not be serialized", err)
		}
		title := strings.TrimSpace(track.Title)
		if title == "" {
			title = filepath.Base(track.Path)
		}
		if _, err := d.store.NewUnit(ctx, track.Path, title, single.Identity(), string(raw)); err != nil {
			return services.Wrap(services.ErrValidation, "decide", "singletons", "enqueue singleton task", err)
		}
	}

	item.Status = queue.StatusSkipped
	item.NeedsReview = false
	item.ReviewReason = ""
	item.SetProgress("Skipped", fmt.Sprintf("Split into %d singleton tasks", len(unit.Tracks)), 100)
	return nil
}

// AutoProvider is the non-interactive provider the daemon uses: it accepts
// the best candidate when its recommendation clears the configured floor and
// otherwise leaves the task waiting.
type AutoProvider struct {
	engine *recommend.Engine
}

// NewAutoProvider builds a scripted provider from recommendation thresholds.
func NewAutoProvider(engine *recommend.Engine) *AutoProvider {
	return &AutoProvider{engine: engine}
}

func (p *AutoProvider) Decide(ctx context.Context, item *queue.Item, set stage.CandidateSet) (Decision, error) {
	if len(set.Candidates) == 0 {
		return Decision{}, ErrNoDecision
	}
	level := recommend.ParseLevel(set.Recommendation)
	if p.engine != nil && p.engine.AutoAccept(level) {
		return Decision{Action: ActionAcceptBest}, nil
	}
	return Decision{}, ErrNoDecision
}

func (p *AutoProvider) ResolveDuplicate(ctx context.Context, item *queue.Item, set library.DuplicateSet) (library.Resolution, error) {
	return "", ErrNoDecision
}
