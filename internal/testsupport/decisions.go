package testsupport

import (
	"context"

	"platter/internal/importer"
	"platter/internal/library"
	"platter/internal/queue"
	"platter/internal/stage"
)

// ScriptedProvider replays a fixed sequence of decisions and duplicate
// resolutions, returning ErrNoDecision once the script runs out.
type ScriptedProvider struct {
	Decisions   []importer.Decision
	Resolutions []library.Resolution

	decided  int
	resolved int
}

func (p *ScriptedProvider) Decide(ctx context.Context, item *queue.Item, set stage.CandidateSet) (importer.Decision, error) {
	if p.decided >= len(p.Decisions) {
		return importer.Decision{}, importer.ErrNoDecision
	}
	decision := p.Decisions[p.decided]
	p.decided++
	return decision, nil
}

func (p *ScriptedProvider) ResolveDuplicate(ctx context.Context, item *queue.Item, set library.DuplicateSet) (library.Resolution, error) {
	if p.resolved >= len(p.Resolutions) {
		return "", importer.ErrNoDecision
	}
	resolution := p.Resolutions[p.resolved]
	p.resolved++
	return resolution, nil
}
