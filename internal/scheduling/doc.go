// Package scheduling is the deferred-publishing engine.
//
// # Overview
//
// Callers schedule posts for future delivery; a background scan promotes due
// posts to posted and emits a delivery side effect (an activity-log record,
// not a real network call). The scan is idempotent per post: Posted only
// ever flips false -> true, and an already-posted entry is never re-delivered.
//
// # Durability
//
// The in-memory per-user lists are the source of truth while the process
// lives. Every mutation persists the full collection through the store; a
// failed write is reported to the caller but the in-memory change stands, so
// durable state may transiently trail memory (at-least-once intent). A crash
// between the in-memory flip and the persisted snapshot can therefore replay
// a delivery on restart.
//
// # Lifecycle
//
// Start registers a recurring scan (cron "@every" trigger). Stop drains the
// in-flight scan before returning so a partial pass never leaves the
// persisted collection with a non-monotonic posted flag.
package scheduling
