package library_test

import (
	"context"
	"path/filepath"
	"testing"

	"platter/internal/config"
	"platter/internal/library"
	"platter/internal/metadata"
	"platter/internal/testsupport"
)

func openStore(t *testing.T) *library.Store {
	t.Helper()
	store, err := library.OpenPath(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("open library store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreAddAndFind(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, library.Entry{
		Artist:     "Beyoncé",
		Album:      "Lemonade",
		ReleaseID:  "rel-1",
		TrackCount: 12,
		Path:       "/music/beyonce/lemonade",
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if id == 0 {
		t.Fatal("Add returned zero id")
	}

	// Keys are matched on the normalized form, so accent and case differences
	// still collide.
	entries, err := store.FindByKeys(ctx, "beyonce", "LEMONADE")
	if err != nil {
		t.Fatalf("FindByKeys failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Artist != "Beyoncé" || entries[0].TrackCount != 12 {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if entries[0].AddedAt.IsZero() {
		t.Fatal("AddedAt not recorded")
	}

	byRelease, err := store.FindByReleaseID(ctx, "rel-1")
	if err != nil {
		t.Fatalf("FindByReleaseID failed: %v", err)
	}
	if len(byRelease) != 1 {
		t.Fatalf("got %d entries by release id, want 1", len(byRelease))
	}

	if entries, _ := store.FindByKeys(ctx, "beyonce", "Renaissance"); len(entries) != 0 {
		t.Fatalf("different album matched: %+v", entries)
	}
}

func TestStoreRemove(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, library.Entry{Artist: "A", Album: "B"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	removed, err := store.Remove(ctx, id)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("Remove reported no rows")
	}

	removed, err = store.Remove(ctx, id)
	if err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if removed {
		t.Fatal("Remove reported rows for missing id")
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d after remove", count)
	}
}

func TestDetectNoConflictOnEmptyCatalog(t *testing.T) {
	store := openStore(t)
	unit := testsupport.NewUnit(t, "Radiohead", "In Rainbows", 10)
	candidate := testsupport.NewCandidate(unit)

	detector := library.NewDetector(store, config.Duplicates{Keys: []string{"artist", "album"}}, nil, nil)
	set, err := detector.Detect(context.Background(), unit, candidate)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !set.Empty() {
		t.Fatalf("empty catalog produced conflicts: %+v", set.Entries)
	}
}

func TestImportThenReimportConflicts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	unit := testsupport.NewUnit(t, "Radiohead", "In Rainbows", 10)
	candidate := testsupport.NewCandidate(unit)

	if _, err := store.Add(ctx, library.EntryFor(unit, candidate, "")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// An identical copy of the unit must collide with the recorded entry.
	copyUnit := testsupport.NewUnit(t, "Radiohead", "In Rainbows", 10)
	detector := library.NewDetector(store, config.Duplicates{Keys: []string{"artist", "album"}}, nil, nil)
	set, err := detector.Detect(ctx, copyUnit, testsupport.NewCandidate(copyUnit))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if set.Empty() {
		t.Fatal("re-import of identical unit found no conflicts")
	}
	if set.Entries[0].Album != "In Rainbows" {
		t.Fatalf("unexpected conflict entry: %+v", set.Entries[0])
	}
}

func TestDetectByReleaseID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	unit := testsupport.NewUnit(t, "Radiohead", "In Rainbows", 10)
	candidate := testsupport.NewCandidate(unit)
	if _, err := store.Add(ctx, library.EntryFor(unit, candidate, "")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Same release id under different textual metadata still conflicts when
	// release_id is in the key tuple.
	other := testsupport.NewUnit(t, "Radiohead", "In Rainbows Remastered", 10)
	otherCandidate := testsupport.NewCandidate(other)
	otherCandidate.ReleaseID = candidate.ReleaseID

	detector := library.NewDetector(store, config.Duplicates{Keys: []string{"release_id"}}, nil, nil)
	set, err := detector.Detect(ctx, other, otherCandidate)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if set.Empty() {
		t.Fatal("shared release id found no conflicts")
	}
}

func TestDetectChecksumMode(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	unit := testsupport.NewUnit(t, "Boards of Canada", "Geogaddi", 8)
	if _, err := store.Add(ctx, library.Entry{
		Artist:   "Someone Else",
		Album:    "Entirely Different",
		Checksum: "sum-1",
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	sum := func(context.Context, *metadata.LocalUnit) (string, error) { return "sum-1", nil }
	detector := library.NewDetector(store, config.Duplicates{Keys: []string{"artist", "album"}, Checksum: true}, sum, nil)
	set, err := detector.Detect(ctx, unit, nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if set.Empty() {
		t.Fatal("matching checksum found no conflicts")
	}

	// Checksum disabled in config ignores the supplied function.
	detector = library.NewDetector(store, config.Duplicates{Keys: []string{"artist", "album"}}, sum, nil)
	set, err = detector.Detect(ctx, unit, nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !set.Empty() {
		t.Fatalf("checksum consulted while disabled: %+v", set.Entries)
	}
}

func TestDetectAsIsFallsBackToUnitMetadata(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	unit := testsupport.NewUnit(t, "Portishead", "Dummy", 11)
	if _, err := store.Add(ctx, library.EntryFor(unit, nil, "")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	detector := library.NewDetector(store, config.Duplicates{Keys: []string{"artist", "album"}}, nil, nil)
	set, err := detector.Detect(ctx, testsupport.NewUnit(t, "Portishead", "Dummy", 11), nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if set.Empty() {
		t.Fatal("as-is duplicate not detected")
	}
}

func TestParseResolution(t *testing.T) {
	cases := map[string]library.Resolution{
		"skip":      library.ResolutionSkip,
		" Replace ": library.ResolutionReplace,
		"MERGE":     library.ResolutionMerge,
		"keep_both": library.ResolutionKeepBoth,
	}
	for input, want := range cases {
		got, ok := library.ParseResolution(input)
		if !ok || got != want {
			t.Fatalf("ParseResolution(%q) = %q, %v", input, got, ok)
		}
	}
	if _, ok := library.ParseResolution("discard"); ok {
		t.Fatal("unknown resolution accepted")
	}
}
