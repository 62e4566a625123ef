package stage

import (
	"context"
	"log/slog"

	"platter/internal/queue"
)

// Handler describes the contract the pipeline manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}

// LoggerAware lets the manager hand a stage a logger carrying task context.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
