package social

import (
	"testing"
	"time"
)

func TestParsePlatformVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want Platform
	}{
		{raw: "Instagram", want: PlatformInstagram},
		{raw: "instagram", want: PlatformInstagram},
		{raw: "  INSTAGRAM ", want: PlatformInstagram},
		{raw: "X", want: PlatformX},
		{raw: "x", want: PlatformX},
		{raw: "twitter", want: PlatformX},
	}
	for _, tt := range tests {
		got, err := ParsePlatform(tt.raw)
		if err != nil {
			t.Fatalf("ParsePlatform(%q) error: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParsePlatform(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	if _, err := ParsePlatform("myspace"); err != ErrUnknownPlatform {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestParseMetricType(t *testing.T) {
	t.Parallel()
	for _, m := range MetricTypes() {
		got, err := ParseMetricType(m.String())
		if err != nil {
			t.Fatalf("ParseMetricType(%q) error: %v", m, err)
		}
		if got != m {
			t.Fatalf("round trip mismatch: %v != %v", got, m)
		}
	}
	if _, err := ParseMetricType("retweets"); err != ErrUnknownMetric {
		t.Fatalf("expected ErrUnknownMetric, got %v", err)
	}
}

func TestScheduledPostDue(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)
	p := ScheduledPost{ScheduledTime: now}

	if !p.Due(now) {
		t.Fatal("post scheduled exactly at now should be due")
	}
	if p.Due(now.Add(-time.Minute)) {
		t.Fatal("post should not be due before its scheduled time")
	}
	p.Posted = true
	if p.Due(now.Add(time.Hour)) {
		t.Fatal("posted entries are never due again")
	}
}
