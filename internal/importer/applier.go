package importer

import (
	"context"
	"log/slog"

	"platter/internal/library"
	"platter/internal/logging"
	"platter/internal/metadata"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/resume"
	"platter/internal/services"
	"platter/internal/stage"
)

// TagWriter applies the matched metadata to the unit's files. Implementations
// live outside this module; the stage only drives the contract.
type TagWriter interface {
	WriteTags(ctx context.Context, unit *metadata.LocalUnit, match stage.Match) error
}

// Organizer places the unit into the library and returns its destination.
type Organizer interface {
	Place(ctx context.Context, unit *metadata.LocalUnit, match stage.Match) (string, error)
}

// CatalogWriter is the write capability the applier needs from the library
// store. The applier is the catalog's sole writer.
type CatalogWriter interface {
	Add(ctx context.Context, entry library.Entry) (int64, error)
	Remove(ctx context.Context, id int64) (bool, error)
	FindByKeys(ctx context.Context, artist, album string) ([]library.Entry, error)
	FindByReleaseID(ctx context.Context, releaseID string) ([]library.Entry, error)
}

// Applier commits a resolved match: writes tags, places files, records the
// catalog entry, and marks the unit done in the resume log. Any collaborator
// failure aborts the task for manual follow-up, because a partial apply
// cannot be safely retried blind.
type Applier struct {
	catalog  CatalogWriter
	tags     TagWriter
	organize Organizer
	checksum library.ChecksumFunc
	resume   *resume.Log
	notifier notifications.Service
	logger   *slog.Logger
}

// NewApplier builds the apply stage handler. The tag writer, organizer, and
// checksum function may be nil; the corresponding step is skipped.
func NewApplier(catalog CatalogWriter, tags TagWriter, organize Organizer, checksum library.ChecksumFunc, resumeLog *resume.Log, notifier notifications.Service, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Applier{
		catalog:  catalog,
		tags:     tags,
		organize: organize,
		checksum: checksum,
		resume:   resumeLog,
		notifier: notifier,
		logger:   logger,
	}
}

// SetLogger swaps in a logger carrying task context.
func (a *Applier) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

func (a *Applier) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := stage.DecodeUnit(item); err != nil {
		return err
	}
	_, err := stage.DecodeMatch(item)
	return err
}

func (a *Applier) Execute(ctx context.Context, item *queue.Item) error {
	unit, err := stage.DecodeUnit(item)
	if err != nil {
		return err
	}
	match, err := stage.DecodeMatch(item)
	if err != nil {
		return err
	}

	if err := a.applyResolution(ctx, unit, match); err != nil {
		return err
	}

	if a.tags != nil && !match.AsIs {
		item.SetProgress("Applying", "Writing tags", 25)
		if err := a.tags.WriteTags(ctx, unit, match); err != nil {
			return services.Wrap(services.ErrApply, "apply", "write tags", "tag writer failed", err)
		}
	}

	destination := unit.Root
	if a.organize != nil {
		item.SetProgress("Applying", "Placing files", 50)
		placed, err := a.organize.Place(ctx, unit, match)
		if err != nil {
			return services.Wrap(services.ErrApply, "apply", "place", "organizer failed", err)
		}
		if placed != "" {
			destination = placed
		}
	}

	if a.catalog != nil {
		item.SetProgress("Applying", "Recording catalog entry", 75)
		checksum := ""
		if a.checksum != nil {
			checksum, err = a.checksum(ctx, unit)
			if err != nil {
				return services.Wrap(services.ErrApply, "apply", "checksum", "unit checksum failed", err)
			}
		}
		entry := library.EntryFor(unit, match.Release, checksum)
		entry.Path = destination
		if _, err := a.catalog.Add(ctx, entry); err != nil {
			return services.Wrap(services.ErrApply, "apply", "catalog", "library entry insert failed", err)
		}
	}

	if a.resume != nil {
		if err := a.resume.Record(unit.Identity(), resume.StateDone, unit.Root); err != nil {
			a.logger.Warn("resume log write failed", logging.Error(err),
				logging.String(logging.FieldErrorHint, "the unit may be re-offered on the next run"))
		}
	}

	item.SetProgress("Done", "Import complete", 100)
	a.logger.Info("import applied",
		logging.String(logging.FieldUnit, unit.Root),
		logging.String("destination", destination))
	if a.notifier != nil {
		if err := a.notifier.NotifyImportCompleted(ctx, item.UnitTitle, destination); err != nil {
			a.logger.Debug("import notification failed", logging.Error(err))
		}
	}
	return nil
}

func (a *Applier) HealthCheck(ctx context.Context) stage.Health {
	if a.catalog == nil {
		return stage.Unhealthy("applier", "catalog writer not configured")
	}
	return stage.Healthy("applier")
}

// applyResolution executes the chosen duplicate resolution before the import
// itself proceeds. Replace removes the conflicting catalog entries; merge and
// keep-both only influence placement and are handled by the organizer.
func (a *Applier) applyResolution(ctx context.Context, unit *metadata.LocalUnit, match stage.Match) error {
	if match.Duplicates == nil || a.catalog == nil {
		return nil
	}
	resolution, ok := library.ParseResolution(match.Duplicates.Resolution)
	if !ok || resolution != library.ResolutionReplace {
		return nil
	}

	entries, err := a.conflictingEntries(ctx, unit, match)
	if err != nil {
		return services.Wrap(services.ErrApply, "apply", "replace", "conflict lookup failed", err)
	}
	for _, entry := range entries {
		if _, err := a.catalog.Remove(ctx, entry.ID); err != nil {
			return services.Wrap(services.ErrApply, "apply", "replace", "existing entry removal failed", err)
		}
		a.logger.Info("replaced catalog entry",
			logging.Int64("entry_id", entry.ID),
			logging.String("album", entry.Album))
	}
	return nil
}

func (a *Applier) conflictingEntries(ctx context.Context, unit *metadata.LocalUnit, match stage.Match) ([]library.Entry, error) {
	artist, album := unit.Artist(), unit.Album()
	releaseID := ""
	if match.Release != nil {
		artist, album, releaseID = match.Release.Artist, match.Release.Title, match.Release.ReleaseID
	}

	if releaseID != "" {
		entries, err := a.catalog.FindByReleaseID(ctx, releaseID)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			return entries, nil
		}
	}
	return a.catalog.FindByKeys(ctx, artist, album)
}
