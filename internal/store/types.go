package store

import (
	"time"

	"postpilot/internal/social"
)

// Config configures storage.
//
// Driver values:
//   - "file": comma-delimited tabular files under Dir (default)
//   - "sqlite": SQLite database at Path (optional build tag)
type Config struct {
	Driver      string
	Dir         string        // file driver: data directory
	Path        string        // sqlite driver: database file
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// ActivityRecord is one delivery side effect: the simulated act of
// publishing a scheduled post. Records are append-only and never rewritten.
type ActivityRecord struct {
	At       time.Time
	Username string
	Platform social.Platform
	Content  string
	PostID   string
}

// activityType is the only record type the log currently carries.
const activityType = "SCHEDULED"
