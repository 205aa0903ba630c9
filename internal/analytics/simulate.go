package analytics

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"postpilot/internal/social"
	"postpilot/pkg/logx"
)

// Baseline magnitudes per metric. Followers dwarf likes, likes dwarf
// comments, and so on; jitter is proportional to the baseline.
func baseValue(m social.MetricType) int {
	switch m {
	case social.MetricFollowers:
		return 1000
	case social.MetricLikes:
		return 150
	case social.MetricComments:
		return 25
	case social.MetricShares:
		return 10
	default:
		return 50
	}
}

// SimulateHistory seeds a synthetic series for demos and tests: one entry
// per (day, platform, metric) for `days` consecutive days ending today.
// Shape is deterministic under a seeded source (see SeedRand); magnitudes
// jitter within ±10% of the metric baseline and never drop below 1.
func (s *Service) SimulateHistory(ctx context.Context, user string, days int) error {
	if days <= 0 {
		return nil
	}

	s.mu.Lock()
	rng := s.rng
	s.mu.Unlock()
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	now := s.now()
	generated := 0
	for day := days - 1; day >= 0; day-- {
		at := now.AddDate(0, 0, -day)
		for _, platform := range social.Platforms() {
			for _, metric := range social.MetricTypes() {
				base := baseValue(metric)
				variation := rng.Intn(base/5) - base/10
				value := base + variation
				if value < 1 {
					value = 1
				}
				e := social.AnalyticsEntry{
					Timestamp: at,
					Platform:  platform,
					Metric:    metric,
					Value:     value,
					ContentID: fmt.Sprintf("content_%d_%s", day, metric),
				}
				if err := s.record(ctx, user, e); err != nil {
					return err
				}
				generated++
			}
		}
	}

	s.log.Info("sample analytics generated",
		logx.String("user", user), logx.Int("days", days), logx.Int("entries", generated))
	return nil
}

// SeedRand pins the simulator's random source. Tests use it to make
// SimulateHistory reproducible.
func (s *Service) SeedRand(seed int64) {
	s.mu.Lock()
	s.rng = rand.New(rand.NewSource(seed))
	s.mu.Unlock()
}
