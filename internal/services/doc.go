// Package services carries the error taxonomy shared by pipeline stages and
// the context annotations that tie log records to tasks, stages, and lanes.
package services
