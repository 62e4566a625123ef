// Package logging builds the slog loggers used across platter and the
// attribute helpers that keep structured fields consistent between the
// console and JSON outputs.
package logging
