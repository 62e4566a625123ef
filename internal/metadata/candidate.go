package metadata

// CandidateTrack is one track of a candidate release as reported by a remote
// catalog.
type CandidateTrack struct {
	RecordingID    string  `json:"recording_id,omitempty"`
	Title          string  `json:"title"`
	Artist         string  `json:"artist,omitempty"`
	Duration       float64 `json:"duration,omitempty"` // seconds
	Position       int     `json:"position,omitempty"` // 1-based within medium
	Medium         int     `json:"medium,omitempty"`   // 1-based disc number
	Disambiguation string  `json:"disambiguation,omitempty"`
}

// Index returns the track's whole-album ordinal given per-medium sizes, or
// its per-medium position when medium layout is unknown.
func (t CandidateTrack) Index(mediumSizes []int) int {
	if t.Medium <= 1 || len(mediumSizes) == 0 {
		return t.Position
	}
	index := t.Position
	for m := 0; m < t.Medium-1 && m < len(mediumSizes); m++ {
		index += mediumSizes[m]
	}
	return index
}

// CandidateRelease is a remote catalog's metadata proposal for a LocalUnit.
type CandidateRelease struct {
	ReleaseID      string           `json:"release_id"`
	Title          string           `json:"title"`
	Artist         string           `json:"artist"`
	Year           int              `json:"year,omitempty"`
	Country        string           `json:"country,omitempty"`
	Label          string           `json:"label,omitempty"`
	CatalogNumber  string           `json:"catalog_number,omitempty"`
	Media          string           `json:"media,omitempty"` // CD, Vinyl, Digital Media, ...
	Disambiguation string           `json:"disambiguation,omitempty"`
	Compilation    bool             `json:"compilation,omitempty"`
	MediumCount    int              `json:"medium_count,omitempty"`
	Tracks         []CandidateTrack `json:"tracks"`
}

// MediumSizes returns the number of tracks per medium, derived from track
// medium annotations.
func (r *CandidateRelease) MediumSizes() []int {
	count := r.MediumCount
	for _, track := range r.Tracks {
		if track.Medium > count {
			count = track.Medium
		}
	}
	if count <= 1 {
		return nil
	}
	sizes := make([]int, count)
	for _, track := range r.Tracks {
		medium := track.Medium
		if medium < 1 {
			medium = 1
		}
		sizes[medium-1]++
	}
	return sizes
}

// Valid reports whether the candidate is well-formed enough to score.
// Malformed candidates (negative durations, empty track lists) are dropped
// rather than failing the whole unit.
func (r *CandidateRelease) Valid() bool {
	if r == nil || len(r.Tracks) == 0 {
		return false
	}
	for _, track := range r.Tracks {
		if track.Duration < 0 {
			return false
		}
	}
	return true
}
