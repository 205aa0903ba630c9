package scheduling

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"postpilot/internal/social"
	"postpilot/internal/store"
	"postpilot/pkg/logx"
)

type Service struct {
	log logx.Logger
	st  store.Store

	mu       sync.Mutex
	cfg      Config
	posts    map[string][]social.ScheduledPost
	limiter  *rate.Limiter
	c        *cron.Cron
	scanning bool

	// stats, guarded by mu
	totalPublished uint64
	lastScan       time.Time
	lastPublished  int

	// saveMu serializes snapshot+persist pairs so an older snapshot can
	// never overwrite a newer one.
	saveMu sync.Mutex

	onPublish PublishFunc

	// swappable in tests
	now   func() time.Time
	newID func() string
}

func New(cfg Config, st store.Store, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		log:     log,
		st:      st,
		cfg:     cfg,
		posts:   map[string][]social.ScheduledPost{},
		limiter: newLimiter(cfg.PublishRate),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func newLimiter(perSec int) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSec), perSec)
}

// SetPublishHook installs fn as the delivery observer. Call before Start.
func (s *Service) SetPublishHook(fn PublishFunc) {
	s.mu.Lock()
	s.onPublish = fn
	s.mu.Unlock()
}

// Load replaces the in-memory collection with the persisted one. Malformed
// rows were already skipped by the store.
func (s *Service) Load(ctx context.Context) error {
	posts, err := s.st.LoadPosts(ctx)
	if err != nil {
		return fmt.Errorf("load scheduled posts: %w", err)
	}
	pending, posted := 0, 0
	for _, list := range posts {
		for _, p := range list {
			if p.Posted {
				posted++
			} else {
				pending++
			}
		}
	}

	s.mu.Lock()
	s.posts = posts
	s.mu.Unlock()

	s.log.Info("scheduled posts loaded",
		logx.Int("users", len(posts)), logx.Int("pending", pending), logx.Int("posted", posted))
	return nil
}

// Schedule validates and enqueues a post for future delivery. The entry is
// visible to ListForUser immediately; a failed persist is returned alongside
// the created post and durability catches up on the next successful write.
func (s *Service) Schedule(ctx context.Context, user, content string, when time.Time, platform string) (social.ScheduledPost, error) {
	if strings.TrimSpace(content) == "" {
		return social.ScheduledPost{}, social.ErrEmptyContent
	}
	pf, err := social.ParsePlatform(platform)
	if err != nil {
		return social.ScheduledPost{}, err
	}
	if !when.After(s.now()) {
		return social.ScheduledPost{}, social.ErrPastSchedule
	}

	post := social.ScheduledPost{
		ID:            s.newID(),
		Author:        user,
		Content:       content,
		ScheduledTime: when.Truncate(time.Minute),
		Platform:      pf,
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.posts[user] = append(s.posts[user], post)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("post scheduled",
		logx.String("user", user),
		logx.String("platform", pf.String()),
		logx.String("post_id", post.ID),
		logx.String("at", post.FormattedTime()))

	if err := s.st.SavePosts(ctx, snapshot); err != nil {
		return post, fmt.Errorf("persist scheduled posts: %w", err)
	}
	return post, nil
}

// Cancel removes a pending post. It returns false when no matching pending
// entry exists; posted entries are terminal and not cancellable.
func (s *Service) Cancel(ctx context.Context, user, postID string) (bool, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	list := s.posts[user]
	idx := -1
	for i, p := range list {
		if p.ID == postID && !p.Posted {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.posts[user] = append(list[:idx], list[idx+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("scheduled post cancelled", logx.String("user", user), logx.String("post_id", postID))

	if err := s.st.SavePosts(ctx, snapshot); err != nil {
		return true, fmt.Errorf("persist scheduled posts: %w", err)
	}
	return true, nil
}

// ListForUser returns the user's posts in insertion order. Never nil.
func (s *Service) ListForUser(user string) []social.ScheduledPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]social.ScheduledPost, len(s.posts[user]))
	copy(out, s.posts[user])
	return out
}

// snapshotLocked deep-copies the collection for persistence outside the lock.
func (s *Service) snapshotLocked() map[string][]social.ScheduledPost {
	out := make(map[string][]social.ScheduledPost, len(s.posts))
	for u, list := range s.posts {
		cp := make([]social.ScheduledPost, len(list))
		copy(cp, list)
		out[u] = cp
	}
	return out
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Running:        s.c != nil,
		ScanEvery:      s.cfg.ScanEvery,
		Users:          len(s.posts),
		TotalPublished: s.totalPublished,
		LastScan:       s.lastScan,
		LastPublished:  s.lastPublished,
	}
	for _, list := range s.posts {
		for _, p := range list {
			if p.Posted {
				snap.Posted++
			} else {
				snap.Pending++
			}
		}
	}
	return snap
}
