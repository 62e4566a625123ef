package library

import (
	"strings"
	"time"
)

// Entry is one imported release recorded in the catalog.
type Entry struct {
	ID         int64
	Artist     string
	Album      string
	ReleaseID  string
	TrackCount int
	Checksum   string
	Path       string
	AddedAt    time.Time
}

// Resolution is the chosen outcome for a duplicate conflict.
type Resolution string

const (
	// ResolutionSkip drops the incoming unit and keeps the existing entry.
	ResolutionSkip Resolution = "skip"
	// ResolutionReplace removes the existing entry before the import proceeds.
	ResolutionReplace Resolution = "replace"
	// ResolutionMerge imports into the existing entry's location.
	ResolutionMerge Resolution = "merge"
	// ResolutionKeepBoth imports alongside the existing entry.
	ResolutionKeepBoth Resolution = "keep_both"
)

// ParseResolution maps a resolution name to its value.
func ParseResolution(value string) (Resolution, bool) {
	switch Resolution(strings.ToLower(strings.TrimSpace(value))) {
	case ResolutionSkip:
		return ResolutionSkip, true
	case ResolutionReplace:
		return ResolutionReplace, true
	case ResolutionMerge:
		return ResolutionMerge, true
	case ResolutionKeepBoth:
		return ResolutionKeepBoth, true
	default:
		return "", false
	}
}

// DuplicateSet holds the catalog entries conflicting with a proposed import,
// plus the resolution once one is decided.
type DuplicateSet struct {
	Entries    []Entry
	Resolution Resolution
}

// Empty reports whether no conflicts were found.
func (d DuplicateSet) Empty() bool {
	return len(d.Entries) == 0
}
