package stage

import (
	"errors"
	"testing"

	"platter/internal/distance"
	"platter/internal/metadata"
	"platter/internal/queue"
	"platter/internal/services"
)

func TestUnitPayloadRoundTrip(t *testing.T) {
	item := &queue.Item{}
	unit := &metadata.LocalUnit{
		Root: "/music/incoming/album",
		Tracks: []metadata.LocalTrack{
			{Path: "/music/incoming/album/01.flac", Title: "One", Artist: "A", Album: "B", TrackNumber: 1},
		},
	}

	if err := EncodeUnit(item, unit); err != nil {
		t.Fatalf("EncodeUnit failed: %v", err)
	}
	decoded, err := DecodeUnit(item)
	if err != nil {
		t.Fatalf("DecodeUnit failed: %v", err)
	}
	if decoded.Root != unit.Root || len(decoded.Tracks) != 1 || decoded.Tracks[0].Title != "One" {
		t.Fatalf("unit round trip mismatch: %+v", decoded)
	}
}

func TestDecodeUnitMissing(t *testing.T) {
	_, err := DecodeUnit(&queue.Item{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing unit payload = %v, want validation error", err)
	}

	_, err = DecodeUnit(&queue.Item{UnitJSON: "{broken"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("corrupt unit payload = %v, want validation error", err)
	}
}

func TestCandidatePayloadRoundTrip(t *testing.T) {
	item := &queue.Item{}

	var d distance.Distance
	d.Add(distance.ComponentAlbum, 3.0, 0.25)
	set := CandidateSet{
		Candidates: []ScoredCandidate{{
			Release:    &metadata.CandidateRelease{ReleaseID: "rel-1", Title: "B", Artist: "A"},
			Total:      d.Total(),
			Components: ComponentScores(&d),
			Alignment:  distance.Alignment{Pairs: []distance.Pair{{Local: 0, Candidate: 0}}},
		}},
		Recommendation: "medium",
	}

	if err := EncodeCandidates(item, set); err != nil {
		t.Fatalf("EncodeCandidates failed: %v", err)
	}
	decoded, err := DecodeCandidates(item)
	if err != nil {
		t.Fatalf("DecodeCandidates failed: %v", err)
	}
	if len(decoded.Candidates) != 1 {
		t.Fatalf("got %d candidates", len(decoded.Candidates))
	}
	got := decoded.Candidates[0]
	if got.Release.ReleaseID != "rel-1" || got.Total != 0.25 {
		t.Fatalf("candidate mismatch: %+v", got)
	}
	if len(got.Components) != 1 || got.Components[0].Name != distance.ComponentAlbum {
		t.Fatalf("components mismatch: %+v", got.Components)
	}
	if decoded.Recommendation != "medium" {
		t.Fatalf("recommendation = %q", decoded.Recommendation)
	}
}

func TestDecodeCandidatesEmptyIsEmptySet(t *testing.T) {
	set, err := DecodeCandidates(&queue.Item{})
	if err != nil {
		t.Fatalf("DecodeCandidates failed: %v", err)
	}
	if len(set.Candidates) != 0 {
		t.Fatalf("empty column produced candidates: %+v", set.Candidates)
	}
}

func TestMatchPayloadRoundTrip(t *testing.T) {
	item := &queue.Item{}
	match := Match{
		Release:    &metadata.CandidateRelease{ReleaseID: "rel-1", Title: "B"},
		Total:      0.04,
		Duplicates: &DuplicateOutcome{Conflicts: 1, Resolution: "replace"},
	}

	if err := EncodeMatch(item, match); err != nil {
		t.Fatalf("EncodeMatch failed: %v", err)
	}
	decoded, err := DecodeMatch(item)
	if err != nil {
		t.Fatalf("DecodeMatch failed: %v", err)
	}
	if decoded.Release.ReleaseID != "rel-1" || decoded.Total != 0.04 {
		t.Fatalf("match mismatch: %+v", decoded)
	}
	if decoded.Duplicates == nil || decoded.Duplicates.Resolution != "replace" {
		t.Fatalf("duplicate outcome mismatch: %+v", decoded.Duplicates)
	}

	if _, err := DecodeMatch(&queue.Item{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing match payload = %v, want validation error", err)
	}
}
