package metadata

import "testing"

func testUnit() *LocalUnit {
	return &LocalUnit{
		Root: "/music/incoming/abbey-road",
		Tracks: []LocalTrack{
			{Path: "/music/incoming/abbey-road/01.flac", Title: "Come Together", Artist: "The Beatles", Album: "Abbey Road", Year: 1969},
			{Path: "/music/incoming/abbey-road/02.flac", Title: "Something", Artist: "The Beatles", Album: "Abbey Road", Year: 1969},
			{Path: "/music/incoming/abbey-road/03.flac", Title: "Maxwell's Silver Hammer", Artist: "The Beatles", Album: "Abbey Road", Year: 1969},
		},
	}
}

func TestUnitIdentityStableUnderTrackOrder(t *testing.T) {
	first := testUnit()
	second := testUnit()
	second.Tracks[0], second.Tracks[2] = second.Tracks[2], second.Tracks[0]

	if first.Identity() != second.Identity() {
		t.Fatal("identity changed when track order changed")
	}
}

func TestUnitIdentityChangesWithContents(t *testing.T) {
	first := testUnit()
	second := testUnit()
	second.Tracks = second.Tracks[:2]

	if first.Identity() == second.Identity() {
		t.Fatal("identity unchanged after dropping a track")
	}

	moved := testUnit()
	moved.Root = "/music/incoming/abbey-road-copy"
	if first.Identity() == moved.Identity() {
		t.Fatal("identity unchanged after moving the unit")
	}
}

func TestUnitConsensusTags(t *testing.T) {
	unit := testUnit()
	unit.Tracks[1].Album = "Abbey Road (Remaster)"

	if got := unit.Album(); got != "Abbey Road" {
		t.Fatalf("Album() = %q, want majority value", got)
	}
	if got := unit.Artist(); got != "The Beatles" {
		t.Fatalf("Artist() = %q", got)
	}
	if got := unit.Year(); got != 1969 {
		t.Fatalf("Year() = %d", got)
	}
}

func TestUnitAlbumArtistPreferred(t *testing.T) {
	unit := testUnit()
	for i := range unit.Tracks {
		unit.Tracks[i].AlbumArtist = "Various Artists"
		unit.Tracks[i].Artist = "Guest " + unit.Tracks[i].Title
	}
	if got := unit.Artist(); got != "Various Artists" {
		t.Fatalf("Artist() = %q, want album artist", got)
	}
}

func TestUnitReleaseIDConsensus(t *testing.T) {
	unit := testUnit()
	if got := unit.ReleaseID(); got != "" {
		t.Fatalf("untagged unit ReleaseID() = %q", got)
	}

	for i := range unit.Tracks {
		unit.Tracks[i].ReleaseID = "d6010be3"
	}
	if got := unit.ReleaseID(); got != "d6010be3" {
		t.Fatalf("ReleaseID() = %q", got)
	}

	unit.Tracks[2].ReleaseID = "other"
	if got := unit.ReleaseID(); got != "" {
		t.Fatalf("conflicting tags should yield empty id, got %q", got)
	}
}
