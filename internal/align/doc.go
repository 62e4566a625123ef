// Package align solves the rectangular minimum-cost assignment problem used
// to pair local tracks with candidate tracks. Rows and columns may be left
// unassigned at a fixed penalty, which is how extra and missing tracks are
// priced. The solver is exact; the identity shortcut is taken only when a
// lower bound proves it optimal.
package align
