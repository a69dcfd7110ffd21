// Package reconcile merges a fetched weekly schedule into the catalog and
// rebuilds the day index.
//
// Each descriptor becomes one atomic work upsert. A work that fails to upsert
// is counted and logged while the rest of the schedule continues. The day index
// is rebuilt from scratch from the works that were written, so a work that
// moved from one weekday to another disappears from its old day.
package reconcile
