// Package report renders human-oriented summaries from the metrics and
// scheduling engines. It holds no state and performs no writes.
package report

import (
	"fmt"
	"sort"
	"strings"

	"postpilot/internal/analytics"
	"postpilot/internal/scheduling"
	"postpilot/internal/social"
)

type Reporter struct {
	analytics *analytics.Service
	scheduler *scheduling.Service
}

func New(a *analytics.Service, s *scheduling.Service) *Reporter {
	return &Reporter{analytics: a, scheduler: s}
}

// Overview summarises the latest value of every tracked metric, grouped by
// platform. Missing metrics show as 0.
func (r *Reporter) Overview(user string) string {
	latest := r.analytics.LatestByMetric(user)
	if len(latest) == 0 {
		return "No analytics data available yet.\n"
	}

	platforms := map[social.Platform]bool{}
	for k := range latest {
		platforms[k.Platform] = true
	}
	ordered := make([]social.Platform, 0, len(platforms))
	for p := range platforms {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var b strings.Builder
	b.WriteString("SOCIAL MEDIA OVERVIEW\n")
	for _, p := range ordered {
		fmt.Fprintf(&b, "\n%s:\n", strings.ToUpper(p.String()))
		for _, m := range social.MetricTypes() {
			v := latest[social.MetricKey{Platform: p, Metric: m}]
			fmt.Fprintf(&b, "  %-10s %d\n", m.String()+":", v)
		}
	}
	return b.String()
}

// Performance reports activity volume per platform plus the most recent
// observation.
func (r *Reporter) Performance(user string) string {
	entries := r.analytics.Entries(user)
	if len(entries) == 0 {
		return "No performance data available yet.\n"
	}

	byPlatform := map[social.Platform]int{}
	latest := entries[0]
	for _, e := range entries {
		byPlatform[e.Platform]++
		if !e.Timestamp.Before(latest.Timestamp) {
			latest = e
		}
	}
	ordered := make([]social.Platform, 0, len(byPlatform))
	for p := range byPlatform {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var b strings.Builder
	b.WriteString("ACCOUNT PERFORMANCE SUMMARY\n")
	fmt.Fprintf(&b, "Total activity records: %d\n", len(entries))
	for _, p := range ordered {
		fmt.Fprintf(&b, "  %s: %d activities tracked\n", p, byPlatform[p])
	}
	fmt.Fprintf(&b, "Latest update: %s %s %s reached %d\n",
		latest.Timestamp.Format(social.TimeLayout), latest.Platform, latest.Metric, latest.Value)
	return b.String()
}

// TrendNarrative turns the growth summaries for the trailing window into a
// short plain-text readout. Changes within ±1%% are treated as stable noise.
func (r *Reporter) TrendNarrative(user string, windowDays int) string {
	trends := r.analytics.Trends(user, windowDays)
	if len(trends) == 0 {
		return "Not enough data to show trends yet.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "GROWTH TRENDS - last %d days\n", windowDays)
	shown := 0
	for _, t := range trends {
		rate := t.GrowthRatePercent
		if rate > -1 && rate < 1 {
			continue
		}
		var status string
		switch {
		case rate > 5:
			status = "strong growth"
		case rate > 0:
			status = "growing steadily"
		case rate < -5:
			status = "needs attention"
		default:
			status = "slight decline"
		}
		fmt.Fprintf(&b, "  %s on %s: %s (%+.0f%%, %+d)\n",
			t.Metric, t.Platform, status, rate, t.TotalChange)
		shown++
	}
	if shown == 0 {
		b.WriteString("  Metrics are stable - no major changes detected.\n")
	}
	return b.String()
}

// ScheduleStatus lists the user's scheduled posts in insertion order.
func (r *Reporter) ScheduleStatus(user string) string {
	posts := r.scheduler.ListForUser(user)
	if len(posts) == 0 {
		return "No scheduled posts found.\n"
	}

	var b strings.Builder
	b.WriteString("SCHEDULED POSTS\n")
	for i, p := range posts {
		state := "PENDING"
		if p.Posted {
			state = "POSTED"
		}
		content := p.Content
		if len(content) > 60 {
			content = content[:60] + "..."
		}
		fmt.Fprintf(&b, "%d. %s [%s] %s: %s (id %s)\n",
			i+1, p.FormattedTime(), state, p.Platform, content, p.ID)
	}
	return b.String()
}
