// Package importer implements the pipeline stage handlers: candidate
// fetching, matching, the decision stage, duplicate checking, and the final
// apply step. Each handler satisfies the stage contract and communicates
// through the queue item's JSON payload columns.
package importer
