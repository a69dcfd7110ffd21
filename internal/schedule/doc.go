// Package schedule fetches the weekly broadcast schedule from the upstream
// catalog API (Jikan v3 shape) and normalizes it into per-weekday lists of
// work descriptors.
//
// The client performs no retries; the scheduler decides when to try again.
// Transport failures and non-2xx responses surface as ErrUpstreamUnavailable,
// payloads that do not match the expected shape as ErrMalformedSchedule.
package schedule
