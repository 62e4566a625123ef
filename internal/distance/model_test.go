package distance

import (
	"fmt"
	"math"
	"testing"

	"platter/internal/config"
	"platter/internal/metadata"
)

func testModel() *Model {
	return NewModel(config.Default().Matcher)
}

func buildUnit(trackCount int) *metadata.LocalUnit {
	unit := &metadata.LocalUnit{Root: "/music/incoming/unit"}
	for i := 1; i <= trackCount; i++ {
		unit.Tracks = append(unit.Tracks, metadata.LocalTrack{
			Path:        fmt.Sprintf("/music/incoming/unit/%02d.flac", i),
			Title:       fmt.Sprintf("Track %d", i),
			Artist:      "The Example Band",
			Album:       "Example Album",
			TrackNumber: i,
			Duration:    180 + float64(i),
			Year:        2001,
		})
	}
	return unit
}

func buildRelease(trackCount int) *metadata.CandidateRelease {
	release := &metadata.CandidateRelease{
		ReleaseID: "release-1",
		Title:     "Example Album",
		Artist:    "The Example Band",
		Year:      2001,
	}
	for i := 1; i <= trackCount; i++ {
		release.Tracks = append(release.Tracks, metadata.CandidateTrack{
			RecordingID: fmt.Sprintf("rec-%d", i),
			Title:       fmt.Sprintf("Track %d", i),
			Duration:    180 + float64(i),
			Position:    i,
			Medium:      1,
		})
	}
	return release
}

func TestMatchPerfect(t *testing.T) {
	model := testModel()
	unit := buildUnit(10)
	release := buildRelease(10)

	alignment, dist := model.Match(unit, release)
	if len(alignment.Pairs) != 10 || len(alignment.ExtraLocal) != 0 || len(alignment.MissingCandidate) != 0 {
		t.Fatalf("alignment = %+v", alignment)
	}
	for i, pair := range alignment.Pairs {
		if pair.Local != i || pair.Candidate != i {
			t.Fatalf("pair %d = %+v, want identity", i, pair)
		}
	}
	if total := dist.Total(); total != 0 {
		t.Fatalf("perfect match total = %f", total)
	}
}

func TestMatchSmallDurationDifference(t *testing.T) {
	model := testModel()
	unit := buildUnit(10)
	release := buildRelease(10)
	release.Tracks[4].Duration += 3 // inside the tolerance window

	_, dist := model.Match(unit, release)
	if dist.Penalized(ComponentTrackCount) {
		t.Fatal("equal track counts should carry no structural penalty")
	}
	if dist.Penalized(ComponentTrackDuration) {
		t.Fatal("3s difference is inside the tolerance window")
	}
	if total := dist.Total(); total > 0.01 {
		t.Fatalf("total = %f, want near zero", total)
	}
}

func TestMatchGradedDurationPenalty(t *testing.T) {
	model := testModel()
	unit := buildUnit(5)
	release := buildRelease(5)
	release.Tracks[0].Duration += 25 // 15s past tolerance, half the grace window

	_, dist := model.Match(unit, release)
	value, ok := dist.Value(ComponentTrackDuration)
	if !ok {
		t.Fatal("duration component missing")
	}
	if math.Abs(value-0.5) > 1e-9 {
		t.Fatalf("duration value = %f, want 0.5", value)
	}
}

func TestMatchExtraTracks(t *testing.T) {
	model := testModel()
	unit := buildUnit(12)
	release := buildRelease(10)

	alignment, dist := model.Match(unit, release)
	if len(alignment.ExtraLocal) != 2 {
		t.Fatalf("extra locals = %v, want 2", alignment.ExtraLocal)
	}
	if len(alignment.MissingCandidate) != 0 {
		t.Fatalf("missing candidates = %v", alignment.MissingCandidate)
	}

	extraCount := 0
	for _, c := range dist.Components() {
		if c.Name == ComponentExtraTracks {
			extraCount++
		}
	}
	if extraCount != 2 {
		t.Fatalf("extra track components = %d, want one per extra track", extraCount)
	}
	if !dist.Penalized(ComponentTrackCount) {
		t.Fatal("differing counts should trip the structural penalty")
	}
}

func TestAlignReorderedTracks(t *testing.T) {
	model := testModel()
	unit := buildUnit(4)
	unit.Tracks[0], unit.Tracks[2] = unit.Tracks[2], unit.Tracks[0]
	release := buildRelease(4)

	alignment := model.Align(unit, release)
	for _, pair := range alignment.Pairs {
		localTitle := unit.Tracks[pair.Local].Title
		candTitle := release.Tracks[pair.Candidate].Title
		if localTitle != candTitle {
			t.Fatalf("pair %+v matches %q to %q", pair, localTitle, candTitle)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	model := testModel()
	unit := buildUnit(8)
	release := buildRelease(8)
	release.Tracks[3].Title = "Renamed"
	release.Year = 2004

	_, first := model.Match(unit, release)
	_, second := model.Match(unit, release)
	if first.Total() != second.Total() {
		t.Fatalf("totals differ: %v vs %v", first.Total(), second.Total())
	}
}

func TestScoreYearGap(t *testing.T) {
	model := testModel()
	unit := buildUnit(3)
	release := buildRelease(3)
	release.Year = 2006 // five years out, half of year_max_gap

	_, dist := model.Match(unit, release)
	value, ok := dist.Value(ComponentYear)
	if !ok {
		t.Fatal("year component missing")
	}
	if math.Abs(value-0.5) > 1e-9 {
		t.Fatalf("year value = %f, want 0.5", value)
	}
}

func TestScoreMissingArtistAndAlbum(t *testing.T) {
	model := testModel()
	unit := buildUnit(3)
	for i := range unit.Tracks {
		unit.Tracks[i].Artist = ""
		unit.Tracks[i].Album = ""
	}
	release := buildRelease(3)

	_, dist := model.Match(unit, release)
	if !dist.Penalized(ComponentArtistMissing) {
		t.Fatal("artist_missing not recorded")
	}
	if !dist.Penalized(ComponentAlbumMissing) {
		t.Fatal("album_missing not recorded")
	}
}

func TestScoreReleaseIDMatchLowersTotal(t *testing.T) {
	model := testModel()
	release := buildRelease(5)
	release.Year = 2005 // introduce a mild penalty to dilute

	plain := buildUnit(5)
	tagged := buildUnit(5)
	for i := range tagged.Tracks {
		tagged.Tracks[i].ReleaseID = "release-1"
	}

	_, plainDist := model.Match(plain, release)
	_, taggedDist := model.Match(tagged, release)
	if taggedDist.Total() >= plainDist.Total() {
		t.Fatalf("matching release id should lower total: %f vs %f",
			taggedDist.Total(), plainDist.Total())
	}

	wrong := buildUnit(5)
	for i := range wrong.Tracks {
		wrong.Tracks[i].ReleaseID = "someone-elses-release"
	}
	_, wrongDist := model.Match(wrong, release)
	if !wrongDist.Penalized(ComponentReleaseID) {
		t.Fatal("mismatched release id not penalized")
	}
}

func TestStringDistSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Abbey Road", "abbey road"},
		{"Motorhead", "Motörhead"},
		{"Example Album (Deluxe Edition)", "Example Album"},
		{"completely different", "nothing alike at all"},
	}
	for _, p := range pairs {
		forward := stringDist(p[0], p[1])
		backward := stringDist(p[1], p[0])
		if forward != backward {
			t.Fatalf("stringDist(%q, %q) = %f but reversed = %f", p[0], p[1], forward, backward)
		}
	}
	if d := stringDist("Example Album (Deluxe Edition)", "Example Album"); d != 0 {
		t.Fatalf("parenthetical suffix should be tolerated, got %f", d)
	}
	if d := stringDist("Motorhead", "Motörhead"); d != 0 {
		t.Fatalf("accent difference should be tolerated, got %f", d)
	}
}

func TestScoreCompilationMismatch(t *testing.T) {
	model := testModel()
	unit := buildUnit(4)
	for i := range unit.Tracks {
		unit.Tracks[i].Artist = fmt.Sprintf("Artist %d", i)
	}
	release := buildRelease(4)

	_, dist := model.Match(unit, release)
	if !dist.Penalized(ComponentCompilation) {
		t.Fatal("per-track artist spread against a single-artist release should flag compilation")
	}

	release.Compilation = true
	release.Artist = "Various Artists"
	_, dist = model.Match(unit, release)
	if dist.Penalized(ComponentCompilation) {
		t.Fatal("compilation release should accept per-track artist spread")
	}
}

func TestDistanceEmptyIsPerfect(t *testing.T) {
	var d Distance
	if d.Total() != 0 {
		t.Fatalf("empty distance total = %f", d.Total())
	}
	if d.Penalized(ComponentArtist) {
		t.Fatal("empty distance reports penalties")
	}
}

func TestDistanceWeightedMean(t *testing.T) {
	var d Distance
	d.Add("a", 3, 1)
	d.Add("b", 1, 0)
	want := 3.0 / 4.0
	if math.Abs(d.Total()-want) > 1e-9 {
		t.Fatalf("Total() = %f, want %f", d.Total(), want)
	}
	d.Add("ignored", 0, 1)
	if math.Abs(d.Total()-want) > 1e-9 {
		t.Fatal("zero-weight component changed the total")
	}
}
