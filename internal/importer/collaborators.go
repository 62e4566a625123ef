package importer

import (
	"context"
	"path/filepath"
	"strings"

	"platter/internal/library"
	"platter/internal/metadata"
	"platter/internal/stage"
)

// NoopTagWriter satisfies TagWriter without touching any files, for setups
// where an external tool owns tag writing.
type NoopTagWriter struct{}

func (NoopTagWriter) WriteTags(context.Context, *metadata.LocalUnit, stage.Match) error {
	return nil
}

// PathPlanner is an Organizer that only computes the library destination; it
// performs no file operations. File movement belongs to an external
// collaborator.
type PathPlanner struct {
	Root string
}

func (p PathPlanner) Place(_ context.Context, unit *metadata.LocalUnit, match stage.Match) (string, error) {
	if p.Root == "" {
		return "", nil
	}
	artist, album := unit.Artist(), unit.Album()
	if match.Release != nil {
		artist, album = match.Release.Artist, match.Release.Title
	}
	if artist == "" {
		artist = "Unknown Artist"
	}
	if album == "" {
		album = filepath.Base(unit.Root)
	}
	if match.Duplicates != nil {
		if resolution, ok := library.ParseResolution(match.Duplicates.Resolution); ok && resolution == library.ResolutionKeepBoth {
			album += " (2)"
		}
	}
	return filepath.Join(p.Root, pathComponent(artist), pathComponent(album)), nil
}

// pathComponent strips separators and characters that break common
// filesystems from a path element.
func pathComponent(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return "_"
	}
	return cleaned
}
