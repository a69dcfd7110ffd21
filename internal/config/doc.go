// Package config loads, normalizes, and validates animetrack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ANIMETRACK_NTFY_TOPIC. The Config type centralizes every knob the daemon and
// CLI need: where the catalog and day index live, which schedule API and
// streaming index to talk to, and how often each periodic task runs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
