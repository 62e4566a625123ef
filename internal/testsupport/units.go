package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"platter/internal/metadata"
)

// NewUnit builds an album-sized LocalUnit with on-disk placeholder files
// under a temp directory.
func NewUnit(t testing.TB, artist, album string, trackCount int) *metadata.LocalUnit {
	t.Helper()

	root := filepath.Join(t.TempDir(), sanitize(album))
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir unit root: %v", err)
	}

	unit := &metadata.LocalUnit{Root: root}
	for i := 1; i <= trackCount; i++ {
		path := filepath.Join(root, fmt.Sprintf("%02d.flac", i))
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			t.Fatalf("write track file: %v", err)
		}
		unit.Tracks = append(unit.Tracks, metadata.LocalTrack{
			Path:        path,
			Title:       fmt.Sprintf("%s Track %d", album, i),
			Artist:      artist,
			Album:       album,
			TrackNumber: i,
			Duration:    200 + float64(i),
			Year:        2010,
		})
	}
	return unit
}

// NewCandidate builds a candidate release mirroring a unit built by NewUnit,
// so the pair scores as a perfect match.
func NewCandidate(unit *metadata.LocalUnit) *metadata.CandidateRelease {
	release := &metadata.CandidateRelease{
		ReleaseID: "test-release-" + sanitize(unit.Album()),
		Title:     unit.Album(),
		Artist:    unit.Artist(),
		Year:      unit.Year(),
	}
	for i, track := range unit.Tracks {
		release.Tracks = append(release.Tracks, metadata.CandidateTrack{
			RecordingID: fmt.Sprintf("%s-rec-%d", release.ReleaseID, i+1),
			Title:       track.Title,
			Duration:    track.Duration,
			Position:    i + 1,
			Medium:      1,
		})
	}
	return release
}

func sanitize(value string) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
