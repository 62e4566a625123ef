package stage

import (
	"encoding/json"

	"platter/internal/distance"
	"platter/internal/metadata"
	"platter/internal/queue"
	"platter/internal/services"
)

// ComponentScore is one distance component in serialized form.
type ComponentScore struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
}

// ScoredCandidate is a candidate release with its computed distance and track
// alignment, stored in the queue's candidates column between the match and
// decide stages.
type ScoredCandidate struct {
	Release    *metadata.CandidateRelease `json:"release"`
	Total      float64                    `json:"total"`
	Components []ComponentScore           `json:"components,omitempty"`
	Alignment  distance.Alignment         `json:"alignment"`
}

// CandidateSet is the fetch and match stages' output payload. Candidates are
// ordered by ascending distance once scored.
type CandidateSet struct {
	Candidates     []ScoredCandidate `json:"candidates"`
	Recommendation string            `json:"recommendation,omitempty"`
}

// Match is the decide stage's output payload: the accepted proposal the apply
// stage will write, or an as-is import carrying no candidate.
type Match struct {
	Release    *metadata.CandidateRelease `json:"release,omitempty"`
	Total      float64                    `json:"total,omitempty"`
	Alignment  distance.Alignment         `json:"alignment,omitempty"`
	AsIs       bool                       `json:"as_is,omitempty"`
	Duplicates *DuplicateOutcome          `json:"duplicates,omitempty"`
}

// DuplicateOutcome records the duplicate conflicts found for a match and the
// resolution chosen for them.
type DuplicateOutcome struct {
	Conflicts  int    `json:"conflicts"`
	Resolution string `json:"resolution,omitempty"`
}

// ComponentScores converts a computed distance into its serialized form.
func ComponentScores(d *distance.Distance) []ComponentScore {
	components := d.Components()
	if len(components) == 0 {
		return nil
	}
	scores := make([]ComponentScore, len(components))
	for i, c := range components {
		scores[i] = ComponentScore{Name: c.Name, Weight: c.Weight, Value: c.Value}
	}
	return scores
}

// EncodeUnit stores the scanned unit on the task.
func EncodeUnit(item *queue.Item, unit *metadata.LocalUnit) error {
	raw, err := json.Marshal(unit)
	if err != nil {
		return services.Wrap(services.ErrValidation, "stage", "encode unit", "unit payload could not be serialized", err)
	}
	item.UnitJSON = string(raw)
	return nil
}

// DecodeUnit parses the scanned unit from the task. A missing or corrupt
/// payload is a validation failure: later stages cannot proceed without it.
func DecodeUnit(item *queue.Item) (*metadata.LocalUnit, error) {
	if item.UnitJSON == "" {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "decode unit",
			"unit payload missing; rescan the unit", nil)
	}
	var unit metadata.LocalUnit
	if err := json.Unmarshal([]byte(item.UnitJSON), &unit); err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "decode unit",
			"unit payload corrupt; rescan the unit", err)
	}
	return &unit, nil
}

// EncodeCandidates stores the fetched or scored candidate set on the task.
func EncodeCandidates(item *queue.Item, set CandidateSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return services.Wrap(services.ErrValidation, "stage", "encode candidates", "candidate payload could not be serialized", err)
	}
	item.CandidatesJSON = string(raw)
	return nil
}

// DecodeCandidates parses the candidate set from the task. An empty column is
// a valid empty set: retrieval may legitimately find nothing.
func DecodeCandidates(item *queue.Item) (CandidateSet, error) {
	if item.CandidatesJSON == "" {
		return CandidateSet{}, nil
	}
	var set CandidateSet
	if err := json.Unmarshal([]byte(item.CandidatesJSON), &set); err != nil {
		return CandidateSet{}, services.Wrap(
			services.ErrValidation, "stage", "decode candidates",
			"candidate payload corrupt; rerun matching", err)
	}
	return set, nil
}

// EncodeMatch stores the accepted match on the task.
func EncodeMatch(item *queue.Item, match Match) error {
	raw, err := json.Marshal(match)
	if err != nil {
		return services.Wrap(services.ErrValidation, "stage", "encode match", "match payload could not be serialized", err)
	}
	item.MatchJSON = string(raw)
	return nil
}

// DecodeMatch parses the accepted match from the task.
func DecodeMatch(item *queue.Item) (Match, error) {
	if item.MatchJSON == "" {
		return Match{}, services.Wrap(
			services.ErrValidation, "stage", "decode match",
			"match payload missing; rerun the decision", nil)
	}
	var match Match
	if err := json.Unmarshal([]byte(item.MatchJSON), &match); err != nil {
		return Match{}, services.Wrap(
			services.ErrValidation, "stage", "decode match",
			"match payload corrupt; rerun the decision", err)
	}
	return match, nil
}
