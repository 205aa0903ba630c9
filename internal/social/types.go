package social

import (
	"strings"
	"time"
)

// TimeLayout is the wall-clock format used across the engine: persisted
// rows, activity records and user-facing output all use minute precision.
const TimeLayout = "2006-01-02 15:04"

// Platform is a publishing destination. The registered set is closed;
// parsing is case-insensitive, storage always uses the canonical form.
type Platform string

const (
	PlatformInstagram Platform = "Instagram"
	PlatformX         Platform = "X"
)

// Platforms returns the registered platforms in a stable order.
func Platforms() []Platform {
	return []Platform{PlatformInstagram, PlatformX}
}

func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instagram":
		return PlatformInstagram, nil
	case "x", "twitter":
		return PlatformX, nil
	default:
		return "", ErrUnknownPlatform
	}
}

func (p Platform) String() string { return string(p) }

// MetricType is an engagement metric tracked per platform.
type MetricType string

const (
	MetricFollowers MetricType = "followers"
	MetricLikes     MetricType = "likes"
	MetricComments  MetricType = "comments"
	MetricShares    MetricType = "shares"

	// MetricPosts counts published posts. It is written by the scheduling
	// engine's publish hook rather than by external callers.
	MetricPosts MetricType = "posts"
)

// MetricTypes returns the externally recordable metrics in a stable order.
func MetricTypes() []MetricType {
	return []MetricType{MetricFollowers, MetricLikes, MetricComments, MetricShares}
}

func ParseMetricType(s string) (MetricType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "followers":
		return MetricFollowers, nil
	case "likes":
		return MetricLikes, nil
	case "comments":
		return MetricComments, nil
	case "shares":
		return MetricShares, nil
	case "posts":
		return MetricPosts, nil
	default:
		return "", ErrUnknownMetric
	}
}

func (m MetricType) String() string { return string(m) }

// ScheduledPost is a deferred publication owned by the scheduling engine.
//
// ID and ScheduledTime are immutable after creation. Posted only ever
// flips false -> true, and only the scan flips it.
type ScheduledPost struct {
	ID            string
	Author        string
	Content       string
	ScheduledTime time.Time
	Platform      Platform
	Posted        bool
}

// Due reports whether the post should be published at instant now.
func (p ScheduledPost) Due(now time.Time) bool {
	return !p.Posted && !p.ScheduledTime.After(now)
}

// FormattedTime renders the scheduled time in the engine's wall-clock layout.
func (p ScheduledPost) FormattedTime() string {
	return p.ScheduledTime.Format(TimeLayout)
}

// AnalyticsEntry is one immutable metric observation. Entries are
// append-only; nothing mutates or deletes them after Record.
type AnalyticsEntry struct {
	Timestamp time.Time
	Platform  Platform
	Metric    MetricType
	Value     int
	ContentID string
}

// MetricKey identifies a (platform, metric) series for a user.
type MetricKey struct {
	Platform Platform
	Metric   MetricType
}

// TrendSummary is the derived growth readout for one metric series over a
// trailing window. It is computed on demand and never persisted.
type TrendSummary struct {
	Platform          Platform
	Metric            MetricType
	GrowthRatePercent float64
	TotalChange       int
	WindowStart       time.Time
	WindowEnd         time.Time
}
