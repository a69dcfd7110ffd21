// Package notifications tells subscribers when a work they watch has a new
// episode.
//
// The Notifier decides whether a probe result is an advance and builds one
// message per subscriber. Delivery goes through a Sink: the catalog inbox is
// always enabled, ntfy is added when a topic is configured (one push per
// episode change, since the topic is shared), and Multi fans a message out to
// several sinks. Delivery is at most once per transition: the
// scheduler records the new episode before notifying, so a failed delivery is
// logged and not retried.
package notifications
