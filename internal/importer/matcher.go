package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"platter/internal/config"
	"platter/internal/distance"
	"platter/internal/logging"
	"platter/internal/metadata"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/recommend"
	"platter/internal/services"
	"platter/internal/stage"
	"platter/internal/textutil"
)

// Matcher scores fetched candidates against the unit, orders them by
// ascending distance, and computes the recommendation. A strong match under
// auto-accept skips the decision stage and goes straight to duplicate
// checking.
type Matcher struct {
	cfg      *config.Config
	model    *distance.Model
	engine   *recommend.Engine
	notifier notifications.Service
	logger   *slog.Logger
}

// NewMatcher builds the match stage handler.
func NewMatcher(cfg *config.Config, notifier notifications.Service, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Matcher{
		cfg:      cfg,
		model:    distance.NewModel(cfg.Matcher),
		engine:   recommend.NewEngine(cfg.Thresholds),
		notifier: notifier,
		logger:   logger,
	}
}

// SetLogger swaps in a logger carrying task context.
func (m *Matcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

func (m *Matcher) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := stage.DecodeUnit(item); err != nil {
		return err
	}
	_, err := stage.DecodeCandidates(item)
	return err
}

func (m *Matcher) Execute(ctx context.Context, item *queue.Item) error {
	unit, err := stage.DecodeUnit(item)
	if err != nil {
		return err
	}
	set, err := stage.DecodeCandidates(item)
	if err != nil {
		return err
	}

	releases := make([]*metadata.CandidateRelease, 0, len(set.Candidates))
	for _, candidate := range set.Candidates {
		releases = append(releases, candidate.Release)
	}
	releases = m.prerank(unit, releases)

	scored := make([]stage.ScoredCandidate, 0, len(releases))
	for _, release := range releases {
		if !release.Valid() {
			dropErr := services.Wrap(services.ErrAlignment, "match", "score", "candidate is malformed", nil)
			m.logger.Warn("candidate dropped before scoring",
				logging.String("release_id", releaseIDOf(release)),
				logging.Error(dropErr))
			continue
		}
		alignment, dist := m.model.Match(unit, release)
		scored = append(scored, stage.ScoredCandidate{
			Release:    release,
			Total:      dist.Total(),
			Components: stage.ComponentScores(dist),
			Alignment:  alignment,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Total != scored[j].Total {
			return scored[i].Total < scored[j].Total
		}
		return scored[i].Release.ReleaseID < scored[j].Release.ReleaseID
	})

	level := recommend.None
	if len(scored) > 0 {
		_, best := m.model.Match(unit, scored[0].Release)
		level = m.engine.Classify(best)
	}
	item.Recommendation = level.String()

	result := stage.CandidateSet{Candidates: scored, Recommendation: level.String()}
	if err := stage.EncodeCandidates(item, result); err != nil {
		return err
	}

	m.logger.Info("matching complete",
		logging.String(logging.FieldUnit, unit.Root),
		logging.Int("scored", len(scored)),
		logging.String("recommendation", level.String()))

	if len(scored) > 0 && m.engine.AutoAccept(level) {
		best := scored[0]
		match := stage.Match{Release: best.Release, Total: best.Total, Alignment: best.Alignment}
		if err := stage.EncodeMatch(item, match); err != nil {
			return err
		}
		item.Status = queue.StatusDuplicateCheck
		item.SetProgress("Matching", fmt.Sprintf("Auto-accepted %q at distance %.3f", best.Release.Title, best.Total), 100)
		return nil
	}

	item.NeedsReview = true
	item.ReviewReason = "Awaiting match decision"
	item.SetProgress("Matching", "Awaiting decision", 100)
	if m.notifier != nil {
		if err := m.notifier.NotifyDecisionRequired(ctx, item.UnitTitle, level.String()); err != nil {
			m.logger.Debug("decision notification failed", logging.Error(err))
		}
	}
	return nil
}

func (m *Matcher) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("matcher")
}

// prerank caps oversized candidate lists before the O(n^3) alignment runs,
// keeping the lexically closest releases by token cosine similarity.
func (m *Matcher) prerank(unit *metadata.LocalUnit, releases []*metadata.CandidateRelease) []*metadata.CandidateRelease {
	max := m.cfg.MusicBrainz.MaxCandidates
	if max <= 0 || len(releases) <= max {
		return releases
	}

	local := textutil.NewFingerprint(unit.Artist() + " " + unit.Album())
	type ranked struct {
		release    *metadata.CandidateRelease
		similarity float64
	}
	rankings := make([]ranked, len(releases))
	for i, release := range releases {
		remote := textutil.NewFingerprint(release.Artist + " " + release.Title)
		rankings[i] = ranked{release: release, similarity: textutil.CosineSimilarity(local, remote)}
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].similarity > rankings[j].similarity
	})

	kept := make([]*metadata.CandidateRelease, max)
	for i := range kept {
		kept[i] = rankings[i].release
	}
	return kept
}

func releaseIDOf(release *metadata.CandidateRelease) string {
	if release == nil {
		return ""
	}
	return release.ReleaseID
}
