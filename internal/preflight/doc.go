// Package preflight provides readiness checks for the paths and upstream
// services animetrack depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup and logs every failure, so a
//     mistyped URL shows up before the first scheduled cycle.
//   - The CLI "animetrack check" command prints the same results as a table.
//
// Optional features are skipped when disabled: the ntfy check runs only when a
// topic is configured.
package preflight
