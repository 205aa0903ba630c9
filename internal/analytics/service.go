package analytics

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"postpilot/internal/social"
	"postpilot/internal/store"
	"postpilot/pkg/logx"
)

type Service struct {
	log logx.Logger
	st  store.Store

	mu      sync.Mutex
	entries map[string][]social.AnalyticsEntry

	// rng drives SimulateHistory; nil means a fresh time-seeded source.
	rng *rand.Rand

	// now is swappable in tests.
	now func() time.Time
}

func New(st store.Store, log logx.Logger) *Service {
	return &Service{
		log:     log,
		st:      st,
		entries: map[string][]social.AnalyticsEntry{},
		now:     time.Now,
	}
}

// Load replaces the in-memory series with the persisted ones. Malformed
// rows were already skipped by the store.
func (s *Service) Load(ctx context.Context) error {
	entries, err := s.st.LoadMetrics(ctx)
	if err != nil {
		return fmt.Errorf("load analytics: %w", err)
	}
	total := 0
	for _, list := range entries {
		total += len(list)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.log.Info("analytics loaded", logx.Int("users", len(entries)), logx.Int("entries", total))
	return nil
}

// Record appends one observation stamped with the current time and persists
// it immediately. A failed append is returned to the caller but the
// in-memory entry stands; durability catches up on the next successful write.
func (s *Service) Record(ctx context.Context, user string, platform social.Platform, metric social.MetricType, value int, contentID string) error {
	e := social.AnalyticsEntry{
		Timestamp: s.now(),
		Platform:  platform,
		Metric:    metric,
		Value:     value,
		ContentID: contentID,
	}
	return s.record(ctx, user, e)
}

func (s *Service) record(ctx context.Context, user string, e social.AnalyticsEntry) error {
	s.mu.Lock()
	s.entries[user] = append(s.entries[user], e)
	s.mu.Unlock()

	if err := s.st.AppendMetric(ctx, user, e); err != nil {
		s.log.Warn("analytics append failed", logx.String("user", user), logx.Err(err))
		return fmt.Errorf("append metric: %w", err)
	}
	return nil
}

// MarkPublished notes a delivered scheduled post as a cumulative "posts"
// series entry. Wired as the scheduling engine's publish hook.
func (s *Service) MarkPublished(user string, platform social.Platform, postID string) {
	s.mu.Lock()
	count := 0
	for _, e := range s.entries[user] {
		if e.Platform == platform && e.Metric == social.MetricPosts && e.Value > count {
			count = e.Value
		}
	}
	s.mu.Unlock()

	e := social.AnalyticsEntry{
		Timestamp: s.now(),
		Platform:  platform,
		Metric:    social.MetricPosts,
		Value:     count + 1,
		ContentID: postID,
	}
	if err := s.record(context.Background(), user, e); err != nil {
		s.log.Warn("publish metric not recorded", logx.String("user", user), logx.Err(err))
	}
}

// Entries returns a copy of the user's observation log, insertion order.
func (s *Service) Entries(user string) []social.AnalyticsEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]social.AnalyticsEntry, len(s.entries[user]))
	copy(out, s.entries[user])
	return out
}

// LatestByMetric returns the most recent value per (platform, metric) pair.
// On equal timestamps the later-recorded entry wins. Pairs with no entries
// are simply absent.
func (s *Service) LatestByMetric(user string) map[social.MetricKey]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := map[social.MetricKey]int{}
	stamp := map[social.MetricKey]time.Time{}
	for _, e := range s.entries[user] {
		k := social.MetricKey{Platform: e.Platform, Metric: e.Metric}
		if prev, ok := stamp[k]; ok && e.Timestamp.Before(prev) {
			continue
		}
		stamp[k] = e.Timestamp
		latest[k] = e.Value
	}
	return latest
}

// Trends computes one growth summary per (platform, metric) pair with at
// least two entries inside the trailing window. Growth rate is defined as 0
// when the first value in the window is 0. Output order is stable:
// platform, then metric.
func (s *Service) Trends(user string, windowDays int) []social.TrendSummary {
	cutoff := s.now().AddDate(0, 0, -windowDays)

	s.mu.Lock()
	grouped := map[social.MetricKey][]social.AnalyticsEntry{}
	for _, e := range s.entries[user] {
		if !e.Timestamp.After(cutoff) {
			continue
		}
		k := social.MetricKey{Platform: e.Platform, Metric: e.Metric}
		grouped[k] = append(grouped[k], e)
	}
	s.mu.Unlock()

	keys := make([]social.MetricKey, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Platform != keys[j].Platform {
			return keys[i].Platform < keys[j].Platform
		}
		return keys[i].Metric < keys[j].Metric
	})

	trends := make([]social.TrendSummary, 0, len(keys))
	for _, k := range keys {
		series := grouped[k]
		if len(series) < 2 {
			continue
		}
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})
		first, last := series[0], series[len(series)-1]

		change := last.Value - first.Value
		rate := 0.0
		if first.Value != 0 {
			rate = float64(change) / float64(first.Value) * 100
		}
		trends = append(trends, social.TrendSummary{
			Platform:          k.Platform,
			Metric:            k.Metric,
			GrowthRatePercent: rate,
			TotalChange:       change,
			WindowStart:       first.Timestamp,
			WindowEnd:         last.Timestamp,
		})
	}
	return trends
}
