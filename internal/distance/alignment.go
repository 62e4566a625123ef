package distance

// Pair matches one local track index to one candidate track index.
type Pair struct {
	Local     int `json:"local"`
	Candidate int `json:"candidate"`
}

// Alignment is a partial injection between a unit's tracks and a candidate's
// tracks, plus the leftovers on each side. ExtraLocal are local track indices
// with no candidate counterpart; MissingCandidate are candidate track indices
// with no local counterpart.
type Alignment struct {
	Pairs            []Pair `json:"pairs"`
	ExtraLocal       []int  `json:"extra_local,omitempty"`
	MissingCandidate []int  `json:"missing_candidate,omitempty"`
}

// CandidateFor returns the candidate index aligned to the local track, or -1.
func (a *Alignment) CandidateFor(local int) int {
	for _, pair := range a.Pairs {
		if pair.Local == local {
			return pair.Candidate
		}
	}
	return -1
}
