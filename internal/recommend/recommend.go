// Package recommend classifies a match distance into an advisory confidence
// level. The classification is state-free and monotonic in the total: a
// strictly better distance never earns a weaker level.
package recommend

import (
	"strings"

	"platter/internal/config"
	"platter/internal/distance"
)

// Level is an ordered confidence classification; higher is better.
type Level int

const (
	None Level = iota
	Low
	Medium
	Strong
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case Strong:
		return "strong"
	case Medium:
		return "medium"
	case Low:
		return "low"
	default:
		return "none"
	}
}

// ParseLevel maps a level name to its Level. Unknown names classify as None.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "strong":
		return Strong
	case "medium":
		return Medium
	case "low":
		return Low
	default:
		return None
	}
}

// hardComponents must individually stay under the configured cap for a
// Strong rating, regardless of how good the total is.
var hardComponents = []string{
	distance.ComponentYear,
	distance.ComponentReleaseID,
}

// Engine applies configured thresholds to distances.
type Engine struct {
	cfg config.Thresholds
}

// NewEngine returns an engine using the given thresholds.
func NewEngine(cfg config.Thresholds) *Engine {
	return &Engine{cfg: cfg}
}

// Classify returns the confidence level for the best candidate's distance.
// A nil distance means no candidates were returned.
func (e *Engine) Classify(best *distance.Distance) Level {
	if best == nil {
		return None
	}
	for _, name := range e.cfg.Disqualifying {
		if best.Penalized(name) {
			return None
		}
	}

	total := best.Total()
	if total <= e.cfg.Strong && !e.hardComponentTripped(best) {
		return Strong
	}
	if total <= e.cfg.Medium {
		return Medium
	}
	return Low
}

// AutoAccept reports whether the level meets the configured auto-accept
// floor. An empty floor disables automatic acceptance.
func (e *Engine) AutoAccept(level Level) bool {
	floor := strings.ToLower(strings.TrimSpace(e.cfg.AutoAccept))
	if floor == "" || floor == "never" || floor == "none" {
		return false
	}
	return level >= ParseLevel(floor)
}

func (e *Engine) hardComponentTripped(d *distance.Distance) bool {
	for _, name := range hardComponents {
		if value, ok := d.Value(name); ok && value > e.cfg.HardComponentCap {
			return true
		}
	}
	return false
}
