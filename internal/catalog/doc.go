// Package catalog persists the anime catalog in SQLite: works, the genres,
// studios and seasons they reference, subscribers with their watchlists, and
// the notification inbox.
//
// Genres, studios and seasons are get-or-create by natural key. Works are
// keyed by the upstream external identifier and written in a single
// transaction per work, so a failed upsert never leaves a work without its
// relations. The stored last episode is owned by the episode tracker:
// re-ingesting the schedule carries it forward and never lowers it.
package catalog
