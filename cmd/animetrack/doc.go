// Package main hosts the animetrack CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon in the foreground, triggers one-shot
// schedule syncs and episode checks, manages watchlists, reads subscriber
// inboxes and scaffolds configuration. Commands open the catalog directly;
// the daemon's lock only guards the scheduler, so one-shot commands are safe
// to run next to it.
package main
