// Package queue persists import tasks in SQLite and implements their
// lifecycle state machine. Each row is one import unit working through
// fetch, match, decide, and apply; lane workers poll the store for the
// oldest item in the statuses they own.
package queue
