// Package library maintains the existing catalog of imported releases and
// implements duplicate detection against it. The detector only reads; the
// apply stage is the sole writer.
package library
