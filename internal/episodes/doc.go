// Package episodes discovers the latest released episode of a work on an
// external streaming index.
//
// An EpisodeSource knows how to locate a work's listing and whether a given
// episode page exists. Gogoanime is the only source today. The Prober walks
// episode numbers upward from the last known one, one request at a time, and
// stops after two consecutive misses. The second miss guards against sites
// that publish a combined episode under a single number.
package episodes
