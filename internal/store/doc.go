// Package store is the durable persistence layer for the publishing engine.
//
// It owns no business logic: the engines' in-memory maps are the source of
// truth during process lifetime, and the store only round-trips them across
// restarts. Two drivers exist:
//   - "file": comma-delimited tabular files (the default)
//   - "sqlite": SQLite database (optional build tag)
package store
