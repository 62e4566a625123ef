package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"platter/internal/metadata"
	"platter/internal/services"
)

// audioExtensions are the file types a scan considers part of a unit.
var audioExtensions = map[string]struct{}{
	".flac": {},
	".mp3":  {},
	".ogg":  {},
	".opus": {},
	".m4a":  {},
	".aac":  {},
	".wav":  {},
	".aiff": {},
	".wv":   {},
	".ape":  {},
}

// TagReader extracts a track snapshot from an audio file. Tag parsing lives
// outside this module; a nil reader leaves only filename-derived fields.
type TagReader interface {
	ReadTags(ctx context.Context, path string) (metadata.LocalTrack, error)
}

// Scanner turns a filesystem path into a LocalUnit.
type Scanner interface {
	Scan(ctx context.Context, root string) (*metadata.LocalUnit, error)
}

// DirScanner lists the audio files of a directory (or a single file, yielding
// a singleton unit) and fills each track from the tag reader when one is
// configured, falling back to filename conventions ("NN Title.ext" inside
// "Artist - Album/").
type DirScanner struct {
	Tags TagReader
}

func (s *DirScanner) Scan(ctx context.Context, root string) (*metadata.LocalUnit, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "scan", "stat", "unit path is not readable", err)
	}

	if !info.IsDir() {
		track, err := s.readTrack(ctx, root)
		if err != nil {
			return nil, err
		}
		return &metadata.LocalUnit{
			Root:      filepath.Dir(root),
			Tracks:    []metadata.LocalTrack{track},
			Singleton: true,
		}, nil
	}

	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "scan", "read dir", "unit directory is not readable", err)
	}

	names := make([]string, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := audioExtensions[ext]; !ok {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, services.Wrap(services.ErrValidation, "scan", "collect",
			fmt.Sprintf("no audio files under %s", root), nil)
	}
	sort.Strings(names)

	unit := &metadata.LocalUnit{Root: root}
	for _, name := range names {
		track, err := s.readTrack(ctx, filepath.Join(root, name))
		if err != nil {
			return nil, err
		}
		unit.Tracks = append(unit.Tracks, track)
	}
	unit.Singleton = len(unit.Tracks) == 1
	return unit, nil
}

func (s *DirScanner) readTrack(ctx context.Context, path string) (metadata.LocalTrack, error) {
	var track metadata.LocalTrack
	if s.Tags != nil {
		read, err := s.Tags.ReadTags(ctx, path)
		if err != nil {
			return metadata.LocalTrack{}, services.Wrap(services.ErrValidation, "scan", "read tags", "tag reader failed", err)
		}
		track = read
	}
	track.Path = path
	fillFromFilename(&track)
	return track, nil
}

// fillFromFilename derives missing fields from path conventions without
// touching anything the tag reader already provided.
func fillFromFilename(track *metadata.LocalTrack) {
	base := strings.TrimSuffix(filepath.Base(track.Path), filepath.Ext(track.Path))

	number, title := splitTrackNumber(base)
	if track.TrackNumber == 0 {
		track.TrackNumber = number
	}
	if track.Title == "" {
		track.Title = title
	}

	dir := filepath.Base(filepath.Dir(track.Path))
	if artist, album, ok := strings.Cut(dir, " - "); ok {
		if track.Artist == "" {
			track.Artist = strings.TrimSpace(artist)
		}
		if track.Album == "" {
			track.Album = strings.TrimSpace(album)
		}
	} else if track.Album == "" {
		track.Album = strings.TrimSpace(dir)
	}
}

// splitTrackNumber peels a leading track ordinal ("07 ", "07 - ", "07.") off
// a file name.
func splitTrackNumber(base string) (int, string) {
	trimmed := strings.TrimSpace(base)
	digits := 0
	for digits < len(trimmed) && trimmed[digits] >= '0' && trimmed[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits > 3 {
		return 0, trimmed
	}
	number, err := strconv.Atoi(trimmed[:digits])
	if err != nil || number <= 0 {
		return 0, trimmed
	}
	rest := strings.TrimLeft(trimmed[digits:], " .-_")
	if rest == "" {
		rest = trimmed
	}
	return number, rest
}
