package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/metadata"
	"platter/internal/services"
)

// Catalog is the read capability the detector needs from the library store.
type Catalog interface {
	FindByKeys(ctx context.Context, artist, album string) ([]Entry, error)
	FindByReleaseID(ctx context.Context, releaseID string) ([]Entry, error)
	FindByChecksum(ctx context.Context, checksum string) ([]Entry, error)
}

// ChecksumFunc computes a content checksum for a unit. Supplied by the caller
// so the detector stays free of audio decoding concerns.
type ChecksumFunc func(ctx context.Context, unit *metadata.LocalUnit) (string, error)

// Detector finds catalog entries that conflict with a proposed import. It
// never mutates the catalog or the unit.
type Detector struct {
	catalog  Catalog
	keys     []string
	checksum ChecksumFunc
	logger   *slog.Logger
}

// NewDetector builds a detector with the configured key tuple. The checksum
// function may be nil; checksum comparison is then skipped even when enabled
// in configuration.
func NewDetector(catalog Catalog, cfg config.Duplicates, checksum ChecksumFunc, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = logging.NewNop()
	}
	keys := cfg.Keys
	if len(keys) == 0 {
		keys = []string{"artist", "album"}
	}
	if !cfg.Checksum {
		checksum = nil
	}
	return &Detector{
		catalog:  catalog,
		keys:     keys,
		checksum: checksum,
		logger:   logger,
	}
}

// Detect returns the catalog entries conflicting with the proposed release
// for the unit. The candidate may be nil for as-is imports; detection then
// falls back to the unit's own consensus metadata.
func (d *Detector) Detect(ctx context.Context, unit *metadata.LocalUnit, candidate *metadata.CandidateRelease) (DuplicateSet, error) {
	var set DuplicateSet

	artist, album, releaseID := d.proposedFields(unit, candidate)

	if releaseID != "" && d.hasKey("release_id") {
		entries, err := d.catalog.FindByReleaseID(ctx, releaseID)
		if err != nil {
			return set, services.Wrap(services.ErrValidation, "duplicate_check", "find_release", "catalog lookup failed", err)
		}
		set.Entries = mergeEntries(set.Entries, entries)
	}

	queryArtist, queryAlbum := "", ""
	if d.hasKey("artist") {
		queryArtist = artist
	}
	if d.hasKey("album") {
		queryAlbum = album
	}
	if queryArtist != "" || queryAlbum != "" {
		entries, err := d.catalog.FindByKeys(ctx, queryArtist, queryAlbum)
		if err != nil {
			return set, services.Wrap(services.ErrValidation, "duplicate_check", "find_keys", "catalog lookup failed", err)
		}
		set.Entries = mergeEntries(set.Entries, entries)
	}

	if d.checksum != nil {
		sum, err := d.checksum(ctx, unit)
		if err != nil {
			return set, services.Wrap(services.ErrValidation, "duplicate_check", "checksum", "unit checksum failed", err)
		}
		if sum != "" {
			entries, err := d.catalog.FindByChecksum(ctx, sum)
			if err != nil {
				return set, services.Wrap(services.ErrValidation, "duplicate_check", "find_checksum", "catalog lookup failed", err)
			}
			set.Entries = mergeEntries(set.Entries, entries)
		}
	}

	if !set.Empty() {
		d.logger.Info("duplicate conflict detected",
			logging.String(logging.FieldUnit, unit.Root),
			slog.Int("conflicts", len(set.Entries)),
			slog.String("keys", strings.Join(d.keys, ",")))
	}
	return set, nil
}

// EntryFor builds the catalog entry a successful import of this release
// would record. The apply stage persists it after the move completes.
func EntryFor(unit *metadata.LocalUnit, candidate *metadata.CandidateRelease, checksum string) Entry {
	artist, album, releaseID := proposedFields(unit, candidate)
	trackCount := len(unit.Tracks)
	if candidate != nil && len(candidate.Tracks) > 0 {
		trackCount = len(candidate.Tracks)
	}
	return Entry{
		Artist:     artist,
		Album:      album,
		ReleaseID:  releaseID,
		TrackCount: trackCount,
		Checksum:   checksum,
		Path:       unit.Root,
	}
}

func (d *Detector) hasKey(name string) bool {
	for _, key := range d.keys {
		if key == name {
			return true
		}
	}
	return false
}

func (d *Detector) proposedFields(unit *metadata.LocalUnit, candidate *metadata.CandidateRelease) (artist, album, releaseID string) {
	return proposedFields(unit, candidate)
}

func proposedFields(unit *metadata.LocalUnit, candidate *metadata.CandidateRelease) (artist, album, releaseID string) {
	if candidate != nil {
		return candidate.Artist, candidate.Title, candidate.ReleaseID
	}
	return unit.Artist(), unit.Album(), unit.ReleaseID()
}

func mergeEntries(existing, more []Entry) []Entry {
	if len(more) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, entry := range existing {
		seen[entryKey(entry)] = struct{}{}
	}
	for _, entry := range more {
		key := entryKey(entry)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		existing = append(existing, entry)
	}
	return existing
}

func entryKey(entry Entry) string {
	if entry.ID != 0 {
		return fmt.Sprintf("id:%d", entry.ID)
	}
	return "kv:" + entry.Artist + "|" + entry.Album + "|" + entry.ReleaseID
}
