// Package logging assembles the structured slog loggers used by the animetrack
// daemon and CLI.
//
// It owns the console and JSON handlers, the level and output plumbing, and
// the shared field names (component, work_id, cycle_id, event_type) so that
// scheduler, probe and notifier records can be filtered consistently. A no-op
// logger is provided for tests and for wiring code that has no logger yet.
package logging
