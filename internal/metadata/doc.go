// Package metadata defines the leaf data types the matcher operates on:
// locally discovered tracks and units, and the candidate releases returned
// by remote catalogs. Candidates are read-only facts and are never mutated.
package metadata
