// Package daemon coordinates the long-running animetrack process.
//
// It wraps the scheduler in a single lifecycle with flock-based locking to
// prevent two instances from writing the same catalog, and optionally serves a
// small read-only HTTP API (status, works, day index) alongside Prometheus
// metrics.
//
// Keep orchestration here. Fetching, reconciling, probing and notifying live
// in their own packages; the daemon only starts, stops and reports on them.
package daemon
