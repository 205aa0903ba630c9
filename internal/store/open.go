package store

import (
	"context"
	"errors"
	"strings"

	"postpilot/internal/social"
	"postpilot/pkg/logx"
)

// Store is the persistence API used by the engines. Collections are keyed
// by owning user; per-user slice order is insertion order and survives a
// save/load round trip.
type Store interface {
	SavePosts(ctx context.Context, posts map[string][]social.ScheduledPost) error
	LoadPosts(ctx context.Context) (map[string][]social.ScheduledPost, error)

	AppendMetric(ctx context.Context, user string, e social.AnalyticsEntry) error
	LoadMetrics(ctx context.Context) (map[string][]social.AnalyticsEntry, error)

	AppendActivity(ctx context.Context, r ActivityRecord) error

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
