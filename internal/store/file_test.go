package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"postpilot/internal/social"
	"postpilot/pkg/logx"
)

func openTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Dir: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, dir
}

func TestLoadPostsMissingFile(t *testing.T) {
	t.Parallel()
	st, _ := openTestStore(t)

	posts, err := st.LoadPosts(context.Background())
	if err != nil {
		t.Fatalf("LoadPosts: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected empty collection, got %d users", len(posts))
	}
}

func TestPostsRoundTrip(t *testing.T) {
	t.Parallel()
	st, _ := openTestStore(t)
	ctx := context.Background()

	when := time.Date(2026, 9, 1, 10, 30, 0, 0, time.Local)
	in := map[string][]social.ScheduledPost{
		"alice": {
			{
				ID:            "p1",
				Author:        "alice",
				Content:       `launch day, part "one", 50% off`,
				ScheduledTime: when,
				Platform:      social.PlatformInstagram,
			},
			{
				ID:            "p2",
				Author:        "alice",
				Content:       "plain text",
				ScheduledTime: when.Add(time.Hour),
				Platform:      social.PlatformX,
				Posted:        true,
			},
		},
		"bob": {
			{
				ID:            "p3",
				Author:        "bob",
				Content:       "multi\nline content",
				ScheduledTime: when,
				Platform:      social.PlatformX,
			},
		},
	}

	if err := st.SavePosts(ctx, in); err != nil {
		t.Fatalf("SavePosts: %v", err)
	}
	out, err := st.LoadPosts(ctx)
	if err != nil {
		t.Fatalf("LoadPosts: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("expected 2 users, got %d", len(out))
	}
	for user, want := range in {
		got := out[user]
		if len(got) != len(want) {
			t.Fatalf("user %s: expected %d posts, got %d", user, len(want), len(got))
		}
		for i := range want {
			if got[i].ID != want[i].ID ||
				got[i].Content != want[i].Content ||
				got[i].Platform != want[i].Platform ||
				got[i].Posted != want[i].Posted ||
				!got[i].ScheduledTime.Equal(want[i].ScheduledTime) {
				t.Fatalf("user %s post %d mismatch:\n got %+v\nwant %+v", user, i, got[i], want[i])
			}
		}
	}
}

func TestSavePostsOverwritesAtomically(t *testing.T) {
	t.Parallel()
	st, dir := openTestStore(t)
	ctx := context.Background()

	if err := st.SavePosts(ctx, map[string][]social.ScheduledPost{}); err != nil {
		t.Fatalf("SavePosts (empty): %v", err)
	}
	out, err := st.LoadPosts(ctx)
	if err != nil {
		t.Fatalf("LoadPosts: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty collection after empty save, got %d", len(out))
	}
	if _, err := os.Stat(filepath.Join(dir, "scheduled_posts.csv.tmp")); !os.IsNotExist(err) {
		t.Fatal("temp file left behind after save")
	}
}

func TestLoadPostsSkipsMalformedRows(t *testing.T) {
	t.Parallel()
	st, dir := openTestStore(t)
	ctx := context.Background()

	rows := strings.Join([]string{
		"Username,Content,ScheduledTime,Platform,Posted,PostId",
		`alice,hello,2026-09-01 10:30,Instagram,false,p1`,
		`bob,broken,not-a-date,Instagram,false,p2`,
		`carol,bad platform,2026-09-01 10:30,MySpace,false,p3`,
		`dave,bad flag,2026-09-01 10:30,X,maybe,p4`,
		`short,row`,
	}, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, "scheduled_posts.csv"), []byte(rows), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	out, err := st.LoadPosts(ctx)
	if err != nil {
		t.Fatalf("LoadPosts: %v", err)
	}
	if len(out) != 1 || len(out["alice"]) != 1 {
		t.Fatalf("expected only alice's valid row, got %+v", out)
	}
}

func TestMetricsAppendAndLoad(t *testing.T) {
	t.Parallel()
	st, _ := openTestStore(t)
	ctx := context.Background()

	at := time.Date(2026, 8, 27, 9, 0, 0, 0, time.Local)
	entries := []social.AnalyticsEntry{
		{Timestamp: at, Platform: social.PlatformInstagram, Metric: social.MetricFollowers, Value: 100, ContentID: "c1"},
		{Timestamp: at.Add(time.Hour), Platform: social.PlatformInstagram, Metric: social.MetricFollowers, Value: 120, ContentID: "c2"},
	}
	for _, e := range entries {
		if err := st.AppendMetric(ctx, "alice", e); err != nil {
			t.Fatalf("AppendMetric: %v", err)
		}
	}

	out, err := st.LoadMetrics(ctx)
	if err != nil {
		t.Fatalf("LoadMetrics: %v", err)
	}
	got := out["alice"]
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[1].Value != 120 || got[1].ContentID != "c2" {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}
}

func TestActivityLogHeaderWrittenOnce(t *testing.T) {
	t.Parallel()
	st, dir := openTestStore(t)
	ctx := context.Background()

	rec := ActivityRecord{
		At:       time.Date(2026, 8, 27, 9, 0, 0, 0, time.Local),
		Username: "alice",
		Platform: social.PlatformX,
		Content:  `quoted "content", with comma`,
		PostID:   "p1",
	}
	if err := st.AppendActivity(ctx, rec); err != nil {
		t.Fatalf("AppendActivity: %v", err)
	}
	if err := st.AppendActivity(ctx, rec); err != nil {
		t.Fatalf("AppendActivity: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "logs", "post_activity.csv"))
	if err != nil {
		t.Fatalf("read activity log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), b)
	}
	if lines[0] != "Timestamp,Username,Platform,Content,Type,PostId" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "SCHEDULED") {
		t.Fatalf("expected SCHEDULED type in row: %s", lines[1])
	}
}
