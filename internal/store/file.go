package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"postpilot/internal/social"
	"postpilot/pkg/logx"
)

// Column layouts of the three tabular files. Each file carries one header
// row; free-text fields are quoted with doubled quotes per RFC 4180.
var (
	postsHeader    = []string{"Username", "Content", "ScheduledTime", "Platform", "Posted", "PostId"}
	metricsHeader  = []string{"Username", "Timestamp", "Platform", "MetricType", "Value", "ContentId"}
	activityHeader = []string{"Timestamp", "Username", "Platform", "Content", "Type", "PostId"}
)

// fileStore persists the collections as comma-delimited tabular files:
//
//	<dir>/scheduled_posts.csv        (rewritten whole on SavePosts)
//	<dir>/logs/analytics_data.csv    (append-only)
//	<dir>/logs/post_activity.csv     (append-only)
//
// SavePosts writes to a temp file and renames it into place so a crash
// mid-write cannot truncate the previous snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	postsPath string

	metricsFile  *os.File
	metricsPath  string
	activityFile *os.File
	activityPath string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "./data"
	}
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		log:          log,
		postsPath:    filepath.Join(dir, "scheduled_posts.csv"),
		metricsPath:  filepath.Join(logDir, "analytics_data.csv"),
		activityPath: filepath.Join(logDir, "post_activity.csv"),
	}

	var err error
	if s.metricsFile, err = openAppend(s.metricsPath, metricsHeader); err != nil {
		return nil, err
	}
	if s.activityFile, err = openAppend(s.activityPath, activityHeader); err != nil {
		_ = s.metricsFile.Close()
		return nil, err
	}
	return s, nil
}

// openAppend opens an append-only table, writing the header when the file
// is new or empty.
func openAppend(path string, header []string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			_ = f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.metricsFile != nil {
		err1 = s.metricsFile.Close()
		s.metricsFile = nil
	}
	if s.activityFile != nil {
		err2 = s.activityFile.Close()
		s.activityFile = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) SavePosts(ctx context.Context, posts map[string][]social.ScheduledPost) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.postsPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(postsHeader); err != nil {
		_ = f.Close()
		return err
	}

	// Stable user order keeps the file diffable; per-user order is the
	// engine's insertion order.
	users := make([]string, 0, len(posts))
	for u := range posts {
		users = append(users, u)
	}
	sort.Strings(users)
	for _, u := range users {
		for _, p := range posts[u] {
			rec := []string{
				u,
				p.Content,
				p.ScheduledTime.Format(social.TimeLayout),
				p.Platform.String(),
				strconv.FormatBool(p.Posted),
				p.ID,
			}
			if err := w.Write(rec); err != nil {
				_ = f.Close()
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.postsPath)
}

func (s *fileStore) LoadPosts(ctx context.Context) (map[string][]social.ScheduledPost, error) {
	_ = ctx
	out := map[string][]social.ScheduledPost{}
	rows, err := s.readRows(s.postsPath)
	if err != nil {
		return nil, err
	}

	skipped := 0
	for _, rec := range rows {
		if len(rec) < 6 {
			skipped++
			continue
		}
		when, err := time.ParseInLocation(social.TimeLayout, rec[2], time.Local)
		if err != nil {
			skipped++
			continue
		}
		platform, err := social.ParsePlatform(rec[3])
		if err != nil {
			skipped++
			continue
		}
		posted, err := strconv.ParseBool(rec[4])
		if err != nil {
			skipped++
			continue
		}
		user := rec[0]
		out[user] = append(out[user], social.ScheduledPost{
			ID:            rec[5],
			Author:        user,
			Content:       rec[1],
			ScheduledTime: when,
			Platform:      platform,
			Posted:        posted,
		})
	}
	if skipped > 0 {
		s.log.Warn("skipped malformed scheduled post rows", logx.Int("rows", skipped), logx.String("path", s.postsPath))
	}
	return out, nil
}

func (s *fileStore) AppendMetric(ctx context.Context, user string, e social.AnalyticsEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metricsFile == nil {
		return errors.New("analytics table closed")
	}
	w := csv.NewWriter(s.metricsFile)
	rec := []string{
		user,
		e.Timestamp.Format(social.TimeLayout),
		e.Platform.String(),
		e.Metric.String(),
		strconv.Itoa(e.Value),
		e.ContentID,
	}
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (s *fileStore) LoadMetrics(ctx context.Context) (map[string][]social.AnalyticsEntry, error) {
	_ = ctx
	out := map[string][]social.AnalyticsEntry{}
	rows, err := s.readRows(s.metricsPath)
	if err != nil {
		return nil, err
	}

	skipped := 0
	for _, rec := range rows {
		if len(rec) < 6 {
			skipped++
			continue
		}
		at, err := time.ParseInLocation(social.TimeLayout, rec[1], time.Local)
		if err != nil {
			skipped++
			continue
		}
		platform, err := social.ParsePlatform(rec[2])
		if err != nil {
			skipped++
			continue
		}
		metric, err := social.ParseMetricType(rec[3])
		if err != nil {
			skipped++
			continue
		}
		value, err := strconv.Atoi(rec[4])
		if err != nil {
			skipped++
			continue
		}
		user := rec[0]
		out[user] = append(out[user], social.AnalyticsEntry{
			Timestamp: at,
			Platform:  platform,
			Metric:    metric,
			Value:     value,
			ContentID: rec[5],
		})
	}
	if skipped > 0 {
		s.log.Warn("skipped malformed analytics rows", logx.Int("rows", skipped), logx.String("path", s.metricsPath))
	}
	return out, nil
}

func (s *fileStore) AppendActivity(ctx context.Context, r ActivityRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activityFile == nil {
		return errors.New("activity log closed")
	}
	w := csv.NewWriter(s.activityFile)
	rec := []string{
		r.At.Format(social.TimeLayout),
		r.Username,
		r.Platform.String(),
		r.Content,
		activityType,
		r.PostID,
	}
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// readRows reads every data row of a table, skipping the header. A missing
// file is an empty table. Rows the csv parser rejects are dropped with a
// warning rather than aborting the load.
func (s *fileStore) readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]string
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.log.Warn("unreadable table row skipped", logx.String("path", path), logx.Err(err))
			continue
		}
		if first {
			first = false
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
