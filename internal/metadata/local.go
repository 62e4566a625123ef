package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sort"
	"strings"
)

// LocalTrack is an immutable snapshot of one discovered audio file's tags
// plus its filesystem identity. It is fixed for the duration of one import
// attempt; re-scans produce new snapshots.
type LocalTrack struct {
	Path        string  `json:"path"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	AlbumArtist string  `json:"album_artist,omitempty"`
	TrackNumber int     `json:"track_number,omitempty"`
	DiscNumber  int     `json:"disc_number,omitempty"`
	Duration    float64 `json:"duration,omitempty"` // seconds
	Year        int     `json:"year,omitempty"`
	// Release-level tags some rippers write per file.
	Media         string `json:"media,omitempty"`
	Country       string `json:"country,omitempty"`
	Label         string `json:"label,omitempty"`
	CatalogNumber string `json:"catalog_number,omitempty"`
	// ReleaseID and RecordingID carry catalog identifiers already present in
	// the file's tags, used for lookup-by-id retrieval.
	ReleaseID   string `json:"release_id,omitempty"`
	RecordingID string `json:"recording_id,omitempty"`
	// AcousticID is the acoustic fingerprint when a fingerprinter ran.
	AcoustID string `json:"acoust_id,omitempty"`
}

// LocalUnit is an ordered set of LocalTracks believed to form one album, or a
// single track in singleton mode. Each unit is owned by exactly one import task.
type LocalUnit struct {
	Root      string       `json:"root"`
	Tracks    []LocalTrack `json:"tracks"`
	Singleton bool         `json:"singleton,omitempty"`

	// Operator-supplied retrieval overrides, set when a decision requests a
	// refined search or an explicit release identifier. They take precedence
	// over tag consensus during candidate retrieval.
	SearchArtist    string `json:"search_artist,omitempty"`
	SearchAlbum     string `json:"search_album,omitempty"`
	SearchReleaseID string `json:"search_release_id,omitempty"`
}

// Identity returns a stable fingerprint for the unit: a hash over the root
// path and the sorted set of file names. It keys the resume log, so it must
// not depend on tag contents or track order.
func (u *LocalUnit) Identity() string {
	h := sha256.New()
	h.Write([]byte(filepath.Clean(u.Root)))
	names := make([]string, 0, len(u.Tracks))
	for _, track := range u.Tracks {
		names = append(names, filepath.Base(track.Path))
	}
	sort.Strings(names)
	for _, name := range names {
		h.Write([]byte{0})
		h.Write([]byte(name))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Artist returns the most common non-empty album artist across the unit's
// tracks, falling back to track artists.
func (u *LocalUnit) Artist() string {
	if v := mostCommon(u.Tracks, func(t LocalTrack) string { return t.AlbumArtist }); v != "" {
		return v
	}
	return mostCommon(u.Tracks, func(t LocalTrack) string { return t.Artist })
}

// Album returns the most common non-empty album tag across the unit's tracks.
func (u *LocalUnit) Album() string {
	return mostCommon(u.Tracks, func(t LocalTrack) string { return t.Album })
}

// Year returns the most common non-zero year tag, or 0.
func (u *LocalUnit) Year() int {
	counts := make(map[int]int)
	for _, track := range u.Tracks {
		if track.Year > 0 {
			counts[track.Year]++
		}
	}
	best, bestCount := 0, 0
	for year, count := range counts {
		if count > bestCount || (count == bestCount && year < best) {
			best, bestCount = year, count
		}
	}
	return best
}

// Media returns the most common non-empty media tag across the unit's tracks.
func (u *LocalUnit) Media() string {
	return mostCommon(u.Tracks, func(t LocalTrack) string { return t.Media })
}

// Country returns the most common non-empty country tag.
func (u *LocalUnit) Country() string {
	return mostCommon(u.Tracks, func(t LocalTrack) string { return t.Country })
}

// Label returns the most common non-empty label tag.
func (u *LocalUnit) Label() string {
	return mostCommon(u.Tracks, func(t LocalTrack) string { return t.Label })
}

// CatalogNumber returns the most common non-empty catalog number tag.
func (u *LocalUnit) CatalogNumber() string {
	return mostCommon(u.Tracks, func(t LocalTrack) string { return t.CatalogNumber })
}

// ReleaseID returns a release identifier shared by every tagged track, or ""
// when tracks disagree or carry none.
func (u *LocalUnit) ReleaseID() string {
	id := ""
	for _, track := range u.Tracks {
		tagged := strings.TrimSpace(track.ReleaseID)
		if tagged == "" {
			continue
		}
		if id == "" {
			id = tagged
			continue
		}
		if id != tagged {
			return ""
		}
	}
	return id
}

func mostCommon(tracks []LocalTrack, pick func(LocalTrack) string) string {
	counts := make(map[string]int)
	order := make([]string, 0, len(tracks))
	for _, track := range tracks {
		value := strings.TrimSpace(pick(track))
		if value == "" {
			continue
		}
		if _, seen := counts[value]; !seen {
			order = append(order, value)
		}
		counts[value]++
	}
	best, bestCount := "", 0
	for _, value := range order {
		if counts[value] > bestCount {
			best, bestCount = value, counts[value]
		}
	}
	return best
}
