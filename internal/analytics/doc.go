// Package analytics is the time-series metrics engine: it ingests immutable
// metric observations keyed by user and answers latest-value and growth-trend
// queries over them.
//
// Entries are append-only. The in-memory map is the source of truth during
// process lifetime; every Record also appends one row to the store so the
// series survives restarts.
package analytics
