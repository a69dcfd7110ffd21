// Package scheduler drives the two periodic tasks of the tracker.
//
// The weekly task fetches the broadcast schedule and reconciles it into the
// catalog. The frequent task reads today's entries from the day index and,
// for each work that is not finished, probes for a new episode, records it and
// notifies subscribers. Each task kind is single-flight: a tick that arrives
// while the previous run is active is skipped. Failures inside the frequent
// task are isolated to the work that caused them.
package scheduler
