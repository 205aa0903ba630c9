package scheduling

import (
	"time"

	"postpilot/internal/social"
)

type Config struct {
	// ScanEvery is the cadence of the publishing scan. Defaults to one
	// minute, the resolution of scheduled times.
	ScanEvery time.Duration

	// PublishRate caps deliveries per second within one scan pass.
	// 0 means unthrottled.
	PublishRate int
}

func (c Config) withDefaults() Config {
	if c.ScanEvery <= 0 {
		c.ScanEvery = time.Minute
	}
	if c.PublishRate < 0 {
		c.PublishRate = 0
	}
	return c
}

// PublishFunc observes every delivered post. Used to feed scheduling
// activity into the metrics engine.
type PublishFunc func(user string, post social.ScheduledPost)

// Snapshot is a point-in-time readout for status surfaces.
type Snapshot struct {
	Running        bool
	ScanEvery      time.Duration
	Users          int
	Pending        int
	Posted         int
	TotalPublished uint64
	LastScan       time.Time
	LastPublished  int
}
