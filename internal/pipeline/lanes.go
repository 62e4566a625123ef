package pipeline

import (
	"log/slog"

	"platter/internal/queue"
	"platter/internal/stage"
)

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

type laneKind string

const (
	laneMatch  laneKind = "match"
	laneDecide laneKind = "decide"
)

type laneState struct {
	kind         laneKind
	name         string
	stages       []pipelineStage
	statusOrder  []queue.Status
	stageByStart map[queue.Status]pipelineStage
	logger       *slog.Logger
	runReclaimer bool
}

func (l *laneState) finalize() {
	if l == nil {
		return
	}
	l.stageByStart = make(map[queue.Status]pipelineStage, len(l.stages))
	l.statusOrder = make([]queue.Status, 0, len(l.stages))
	for _, stg := range l.stages {
		l.stageByStart[stg.startStatus] = stg
		l.statusOrder = append(l.statusOrder, stg.startStatus)
	}
}

func (l *laneState) stageForStatus(status queue.Status) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByStart[status]
	return stg, ok
}
