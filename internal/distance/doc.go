// Package distance scores a candidate release against a local unit. The
// score is a set of named weighted penalty components, each in [0,1], whose
// weighted mean is the total distance: 0 is a perfect match, 1 is maximal
// dissimilarity. Components are enumerable so every total is auditable.
package distance
