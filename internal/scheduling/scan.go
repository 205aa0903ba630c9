package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"postpilot/internal/social"
	"postpilot/internal/store"
	"postpilot/pkg/logx"
)

// Start begins the recurring publishing scan. It also runs one scan right
// away so posts due across a restart are not delayed by a full interval.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.c != nil {
		s.mu.Unlock()
		return nil
	}
	every := s.cfg.ScanEvery
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", every), func() { s.runScan(ctx) }); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("register scan: %w", err)
	}
	s.c = c
	s.mu.Unlock()

	c.Start()
	s.log.Info("publishing scan started", logx.Duration("every", every))

	go s.runScan(ctx)
	return nil
}

// Stop halts the scan trigger and waits for an in-flight scan to finish,
// bounded by ctx. The collection is never left mid-pass.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("publishing scan stop timed out; scan continues in background")
		return
	}

	// The startup scan runs outside cron's job tracking; wait it out too.
	for {
		s.mu.Lock()
		running := s.scanning
		s.mu.Unlock()
		if !running {
			break
		}
		select {
		case <-ctx.Done():
			s.log.Warn("publishing scan stop timed out; scan continues in background")
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	s.log.Info("publishing scan stopped")
}

// Apply updates runtime settings. A changed interval restarts the trigger;
// a scan already in flight finishes under the old cadence.
func (s *Service) Apply(ctx context.Context, cfg Config) {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	changed := cfg.ScanEvery != s.cfg.ScanEvery
	running := s.c != nil
	s.cfg = cfg
	s.limiter = newLimiter(cfg.PublishRate)
	s.mu.Unlock()

	if changed && running {
		s.Stop(ctx)
		if err := s.Start(ctx); err != nil {
			s.log.Error("scan restart failed", logx.Err(err))
		}
		s.log.Info("scan interval applied", logx.Duration("every", cfg.ScanEvery))
	}
}

// runScan guards against overlapping passes: a tick that fires while the
// previous scan is still publishing is skipped, not queued.
func (s *Service) runScan(ctx context.Context) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		s.log.Debug("scan still running; skipping tick")
		return
	}
	s.scanning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	if _, err := s.ScanAndPublish(ctx); err != nil {
		s.log.Warn("scan finished with errors", logx.Err(err))
	}
}

// ScanAndPublish promotes every due pending post to posted, emits its
// delivery record, and persists the collection once for the whole pass.
// Re-running it without new due posts publishes nothing: the posted flag
// flips exactly once per post.
func (s *Service) ScanAndPublish(ctx context.Context) (int, error) {
	now := s.now()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	users := make([]string, 0, len(s.posts))
	for u := range s.posts {
		users = append(users, u)
	}
	sort.Strings(users)

	var due []store.ActivityRecord
	for _, u := range users {
		list := s.posts[u]
		for i := range list {
			if !list[i].Due(now) {
				continue
			}
			list[i].Posted = true
			due = append(due, store.ActivityRecord{
				At:       now,
				Username: u,
				Platform: list[i].Platform,
				Content:  list[i].Content,
				PostID:   list[i].ID,
			})
		}
	}
	var snapshot map[string][]social.ScheduledPost
	if len(due) > 0 {
		snapshot = s.snapshotLocked()
	}
	limiter := s.limiter
	hook := s.onPublish
	s.lastScan = now
	s.lastPublished = len(due)
	s.totalPublished += uint64(len(due))
	s.mu.Unlock()

	if len(due) == 0 {
		return 0, nil
	}

	// Posts are already exposed as posted in memory; the snapshot write
	// below completes before the scan returns. A crash in between can
	// replay these deliveries on restart (accepted at-least-once).
	var firstErr error
	for _, rec := range due {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				// Shutdown mid-pass: stop delivering but still persist
				// the flipped flags below.
				firstErr = err
				break
			}
		}
		s.log.Info("auto-posting scheduled content",
			logx.String("user", rec.Username),
			logx.String("platform", rec.Platform.String()),
			logx.String("post_id", rec.PostID),
			logx.String("content", rec.Content))
		if err := s.st.AppendActivity(ctx, rec); err != nil {
			s.log.Warn("activity log append failed", logx.String("post_id", rec.PostID), logx.Err(err))
			if firstErr == nil {
				firstErr = err
			}
		}
		if hook != nil {
			p, _ := s.find(rec.Username, rec.PostID)
			hook(rec.Username, p)
		}
	}

	if err := s.st.SavePosts(ctx, snapshot); err != nil {
		s.log.Warn("persisting scan results failed", logx.Err(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	s.log.Info("scan pass complete", logx.Int("published", len(due)))
	return len(due), firstErr
}

func (s *Service) find(user, postID string) (social.ScheduledPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts[user] {
		if p.ID == postID {
			return p, true
		}
	}
	return social.ScheduledPost{}, false
}
