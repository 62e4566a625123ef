// Package pipeline coordinates queue processing across two lanes: a match
// lane that overlaps fetch, match, and apply work across tasks, and a
// serialized decide lane that owns every status blocked on a decision. Lanes
// poll the queue store; the store is the only coordination point, so a crash
// loses at most the stage in flight.
package pipeline
