// Package daemon wires the import pipeline together: it owns the queue and
// library stores, the resume log, the retrieval stack, and the pipeline
// manager, with flock-based locking to prevent multiple instances from
// running over the same state directory.
package daemon
