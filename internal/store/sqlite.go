//go:build sqlite
// +build sqlite

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"postpilot/internal/social"
	"postpilot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &sqliteStore{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) SavePosts(ctx context.Context, posts map[string][]social.ScheduledPost) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_posts`); err != nil {
		return err
	}
	for user, list := range posts {
		for i, p := range list {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO scheduled_posts(id, username, content, scheduled_at, platform, posted, position)
				 VALUES(?,?,?,?,?,?,?)`,
				p.ID, user, p.Content, p.ScheduledTime.Format(social.TimeLayout),
				p.Platform.String(), boolInt(p.Posted), i,
			)
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) LoadPosts(ctx context.Context) (map[string][]social.ScheduledPost, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, content, scheduled_at, platform, posted
		 FROM scheduled_posts ORDER BY username, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]social.ScheduledPost{}
	skipped := 0
	for rows.Next() {
		var (
			p      social.ScheduledPost
			user   string
			when   string
			plat   string
			posted int
		)
		if err := rows.Scan(&p.ID, &user, &p.Content, &when, &plat, &posted); err != nil {
			skipped++
			continue
		}
		t, err := time.ParseInLocation(social.TimeLayout, when, time.Local)
		if err != nil {
			skipped++
			continue
		}
		pf, err := social.ParsePlatform(plat)
		if err != nil {
			skipped++
			continue
		}
		p.Author = user
		p.ScheduledTime = t
		p.Platform = pf
		p.Posted = posted != 0
		out[user] = append(out[user], p)
	}
	if skipped > 0 {
		s.log.Warn("skipped malformed scheduled post rows", logx.Int("rows", skipped))
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendMetric(ctx context.Context, user string, e social.AnalyticsEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analytics_entries(username, at, platform, metric, value, content_id)
		 VALUES(?,?,?,?,?,?)`,
		user, e.Timestamp.Format(social.TimeLayout), e.Platform.String(),
		e.Metric.String(), e.Value, e.ContentID,
	)
	return err
}

func (s *sqliteStore) LoadMetrics(ctx context.Context) (map[string][]social.AnalyticsEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, at, platform, metric, value, content_id
		 FROM analytics_entries ORDER BY username, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]social.AnalyticsEntry{}
	skipped := 0
	for rows.Next() {
		var (
			e     social.AnalyticsEntry
			user  string
			at    string
			plat  string
			metr  string
			cid   sql.NullString
			value int
		)
		if err := rows.Scan(&user, &at, &plat, &metr, &value, &cid); err != nil {
			skipped++
			continue
		}
		t, err := time.ParseInLocation(social.TimeLayout, at, time.Local)
		if err != nil {
			skipped++
			continue
		}
		pf, err := social.ParsePlatform(plat)
		if err != nil {
			skipped++
			continue
		}
		mt, err := social.ParseMetricType(metr)
		if err != nil {
			skipped++
			continue
		}
		e.Timestamp = t
		e.Platform = pf
		e.Metric = mt
		e.Value = value
		e.ContentID = cid.String
		out[user] = append(out[user], e)
	}
	if skipped > 0 {
		s.log.Warn("skipped malformed analytics rows", logx.Int("rows", skipped))
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendActivity(ctx context.Context, r ActivityRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO post_activity(at, username, platform, content, type, post_id)
		 VALUES(?,?,?,?,?,?)`,
		r.At.Format(social.TimeLayout), r.Username, r.Platform.String(),
		r.Content, activityType, r.PostID,
	)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
