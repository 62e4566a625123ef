package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/metadata"
	"platter/internal/musicbrainz"
	"platter/internal/queue"
	"platter/internal/resume"
	"platter/internal/retrieval"
	"platter/internal/stage"
)

// Fetcher retrieves candidate releases for a scanned unit. Retrieval failures
// are recoverable: the stage completes with zero candidates and lets the
// decision stage sort it out.
type Fetcher struct {
	cfg    *config.Config
	source retrieval.Source
	resume *resume.Log
	logger *slog.Logger
}

// NewFetcher builds the fetch stage handler.
func NewFetcher(cfg *config.Config, source retrieval.Source, resumeLog *resume.Log, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{cfg: cfg, source: source, resume: resumeLog, logger: logger}
}

// SetLogger swaps in a logger carrying task context.
func (f *Fetcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		f.logger = logger
	}
}

func (f *Fetcher) Prepare(ctx context.Context, item *queue.Item) error {
	_, err := stage.DecodeUnit(item)
	return err
}

func (f *Fetcher) Execute(ctx context.Context, item *queue.Item) error {
	unit, err := stage.DecodeUnit(item)
	if err != nil {
		return err
	}

	// Resume log fast-forward: a unit already resolved by a previous run is
	// skipped without touching the remote catalog.
	if f.resume != nil && f.resume.ShouldSkip(unit.Identity()) {
		item.Status = queue.StatusSkipped
		item.SetProgress("Skipped", "Already imported in a previous run", 100)
		f.logger.Info("unit fast-forwarded from resume log",
			logging.String(logging.FieldUnit, unit.Root),
			logging.String(logging.FieldEventType, "resume_skip"))
		return nil
	}

	candidates := f.gather(ctx, unit)
	set := stage.CandidateSet{Candidates: make([]stage.ScoredCandidate, 0, len(candidates))}
	for _, release := range candidates {
		set.Candidates = append(set.Candidates, stage.ScoredCandidate{Release: release})
	}
	if err := stage.EncodeCandidates(item, set); err != nil {
		return err
	}

	item.SetProgress("Fetching", candidateSummary(len(set.Candidates)), 100)
	f.logger.Info("candidate retrieval complete",
		logging.String(logging.FieldUnit, unit.Root),
		logging.Int("candidates", len(set.Candidates)))
	return nil
}

func (f *Fetcher) HealthCheck(ctx context.Context) stage.Health {
	if f.source == nil {
		return stage.Unhealthy("fetcher", "retrieval source not configured")
	}
	return stage.Healthy("fetcher")
}

// gather collects candidates from the strongest identity signal down:
// explicit release id, acoustic fingerprints, then textual search. Failures
// along the way are logged and the remaining signals still run.
func (f *Fetcher) gather(ctx context.Context, unit *metadata.LocalUnit) []*metadata.CandidateRelease {
	var (
		releases []*metadata.CandidateRelease
		seen     = make(map[string]struct{})
	)
	add := func(release *metadata.CandidateRelease) {
		if release == nil || !release.Valid() {
			return
		}
		if _, dup := seen[release.ReleaseID]; dup {
			return
		}
		seen[release.ReleaseID] = struct{}{}
		releases = append(releases, release)
	}

	if id := f.releaseID(unit); id != "" {
		release, err := f.source.LookupByID(ctx, id)
		if err != nil {
			f.warn(unit, "lookup", retrieval.Classify("lookup", err))
		} else {
			add(release)
		}
	}

	for _, fp := range fingerprints(unit) {
		matches, err := f.source.LookupByFingerprint(ctx, fp)
		if err != nil {
			f.warn(unit, "fingerprint", retrieval.Classify("fingerprint", err))
			continue
		}
		for _, release := range matches {
			add(release)
		}
	}

	artist, album := f.searchTerms(unit)
	if artist != "" || album != "" {
		query := musicbrainz.Query{Artist: artist, Album: album, TrackCount: len(unit.Tracks)}
		matches, err := f.source.Search(ctx, query)
		if err != nil {
			f.warn(unit, "search", retrieval.Classify("search", err))
		}
		for _, release := range matches {
			add(release)
		}
	}

	return releases
}

func (f *Fetcher) releaseID(unit *metadata.LocalUnit) string {
	if id := strings.TrimSpace(unit.SearchReleaseID); id != "" {
		return id
	}
	return unit.ReleaseID()
}

func (f *Fetcher) searchTerms(unit *metadata.LocalUnit) (artist, album string) {
	artist = strings.TrimSpace(unit.SearchArtist)
	if artist == "" {
		artist = unit.Artist()
	}
	album = strings.TrimSpace(unit.SearchAlbum)
	if album == "" {
		album = unit.Album()
	}
	return artist, album
}

func (f *Fetcher) warn(unit *metadata.LocalUnit, operation string, err error) {
	f.logger.Warn("candidate retrieval degraded",
		logging.String(logging.FieldUnit, unit.Root),
		logging.String("operation", operation),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check catalog connectivity; the unit proceeds with fewer candidates"))
}

func fingerprints(unit *metadata.LocalUnit) []string {
	var (
		fps  []string
		seen = make(map[string]struct{})
	)
	for _, track := range unit.Tracks {
		fp := strings.TrimSpace(track.AcoustID)
		if fp == "" {
			continue
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		fps = append(fps, fp)
	}
	return fps
}

func candidateSummary(count int) string {
	switch count {
	case 0:
		return "No candidates found"
	case 1:
		return "1 candidate fetched"
	default:
		return fmt.Sprintf("%d candidates fetched", count)
	}
}
