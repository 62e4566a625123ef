package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an import task.
type Status string

const (
	StatusPending           Status = "pending"
	StatusFetching          Status = "fetching"
	StatusCandidatesFetched Status = "candidates_fetched"
	StatusMatching          Status = "matching"
	StatusAwaitingDecision  Status = "awaiting_decision"
	StatusDeciding          Status = "deciding"
	StatusDuplicateCheck    Status = "duplicate_check"
	StatusResolved          Status = "resolved"
	StatusApplying          Status = "applying"
	StatusDone              Status = "done"
	StatusSkipped           Status = "skipped"
	StatusAborted           Status = "aborted"
	StatusFailed            Status = "failed"
)

// UserStopReason is the review reason set when a user explicitly stops a task.
const UserStopReason = "Stop requested by user"

// DaemonStopReason is the error message set when tasks are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusFetching,
	StatusCandidatesFetched,
	StatusMatching,
	StatusAwaitingDecision,
	StatusDeciding,
	StatusDuplicateCheck,
	StatusResolved,
	StatusApplying,
	StatusDone,
	StatusSkipped,
	StatusAborted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusFetching:       {},
	StatusMatching:       {},
	StatusDeciding:       {},
	StatusDuplicateCheck: {},
	StatusApplying:       {},
}

var terminalStatuses = map[Status]struct{}{
	StatusDone:    {},
	StatusSkipped: {},
	StatusAborted: {},
	StatusFailed:  {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions return an interrupted task to the start of its
// current stage. Decision work in flight rolls back to awaiting_decision so a
// restart re-presents the same choice.
var stageRollbackTransitions = []statusTransition{
	{from: StatusFetching, to: StatusPending},
	{from: StatusMatching, to: StatusCandidatesFetched},
	{from: StatusDeciding, to: StatusAwaitingDecision},
	{from: StatusDuplicateCheck, to: StatusAwaitingDecision},
	{from: StatusApplying, to: StatusResolved},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Waiting    int
	Failed     int
	Done       int
}

// Item represents one import task persisted in SQLite. The JSON columns carry
// the stage payloads: the scanned unit, the fetched candidates with their
// scores, and the chosen match.
type Item struct {
	ID              int64
	UnitPath        string
	UnitTitle       string
	Status          Status
	UnitFingerprint string
	CorrelationID   string
	UnitJSON        string
	CandidatesJSON  string
	MatchJSON       string
	Recommendation  string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	NeedsReview     bool
	ReviewReason    string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminalStatus reports whether a status ends the task's lifecycle.
func IsTerminalStatus(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// IsUserStopReason reports whether a review reason represents a user-initiated stop.
func IsUserStopReason(reason string) bool {
	return strings.EqualFold(strings.TrimSpace(reason), UserStopReason)
}

// SetProgress updates all three progress fields atomically.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetFailed marks the task as failed with the given error message and clears
// its heartbeat.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// SetAborted marks the task aborted, used when an apply collaborator failed
// partway and manual follow-up is required.
func (i *Item) SetAborted(message string) {
	i.Status = StatusAborted
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Aborted"
	i.NeedsReview = true
	if i.ReviewReason == "" {
		i.ReviewReason = message
	}
}

// ProcessingLane partitions the pipeline into concurrent match work and the
// serialized decision stage.
type ProcessingLane string

const (
	LaneMatch  ProcessingLane = "match"
	LaneDecide ProcessingLane = "decide"
)

// LaneForStatus maps a status to the lane whose worker owns it.
func LaneForStatus(status Status) ProcessingLane {
	switch status {
	case StatusAwaitingDecision, StatusDeciding, StatusDuplicateCheck:
		return LaneDecide
	default:
		return LaneMatch
	}
}
