// Package report reconstructs working time from the sparse event log.
//
// Events are points in time, not intervals. Time is credited with the
// idle-gap heuristic: walking events in timestamp order within a partition,
// the gap since the previous event of the same partition counts in full when
// it is shorter than the idle timeout and not at all otherwise.
//
//	events:   0s      10s                400s
//	          |--10s--|                  |
//	idle 300: credited 10s, gap of 390s credited 0
//	sessions: [0s..10s] (2 events)       [400s..400s] (1 event)
//
// Partitions are the whole range (Total), a project or language
// (ByCategory), a UTC calendar day (ByDay) and a UTC hour of the day (ByHour).
// Because gaps never span partitions, category totals do not in general sum
// to the overall total; percentages are therefore taken against the sum of
// the listed categories.
//
// Engine works on an in-memory slice; Service loads events from a Source for
// a requested range and applies the engine. Reports are computed on demand
// and never cached.
package report
