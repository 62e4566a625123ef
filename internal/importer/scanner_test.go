package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"platter/internal/importer"
)

func writeAudioFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("audio"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestDirScannerBuildsAlbumUnit(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Boards of Canada - Geogaddi")
	writeAudioFiles(t, root,
		"01 Ready Lets Go.flac",
		"02 Music Is Math.flac",
		"cover.jpg",
		"rip.log",
	)

	scanner := &importer.DirScanner{}
	unit, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(unit.Tracks) != 2 {
		t.Fatalf("got %d tracks, want non-audio files ignored", len(unit.Tracks))
	}
	if unit.Singleton {
		t.Fatal("album unit flagged singleton")
	}

	first := unit.Tracks[0]
	if first.TrackNumber != 1 || first.Title != "Ready Lets Go" {
		t.Fatalf("filename not parsed: %+v", first)
	}
	if first.Artist != "Boards of Canada" || first.Album != "Geogaddi" {
		t.Fatalf("directory convention not parsed: artist=%q album=%q", first.Artist, first.Album)
	}
}

func TestDirScannerSingleFileIsSingleton(t *testing.T) {
	root := filepath.Join(t.TempDir(), "loose")
	writeAudioFiles(t, root, "07 - Dayvan Cowboy.mp3")

	scanner := &importer.DirScanner{}
	unit, err := scanner.Scan(context.Background(), filepath.Join(root, "07 - Dayvan Cowboy.mp3"))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if !unit.Singleton || len(unit.Tracks) != 1 {
		t.Fatalf("single file should be a singleton unit: %+v", unit)
	}
	if unit.Tracks[0].TrackNumber != 7 || unit.Tracks[0].Title != "Dayvan Cowboy" {
		t.Fatalf("filename not parsed: %+v", unit.Tracks[0])
	}
}

func TestDirScannerRejectsEmptyDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "empty")
	writeAudioFiles(t, root, "notes.txt")

	scanner := &importer.DirScanner{}
	if _, err := scanner.Scan(context.Background(), root); err == nil {
		t.Fatal("expected error for directory without audio files")
	}
}
