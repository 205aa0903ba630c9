package config

import (
	"fmt"
	"strings"
	"time"

	"postpilot/pkg/logx"
)

// Config is the on-disk configuration. YAML and JSON are both accepted;
// unknown fields are rejected so typos fail loudly at startup.
type Config struct {
	// DataDir holds the tabular data files (scheduled posts, analytics,
	// activity log). Created on demand.
	DataDir string `json:"data_dir,omitempty"`

	// ScanInterval is a Go duration string controlling how often the
	// publishing scan runs. Defaults to "1m", matching the minute
	// resolution of scheduled times.
	ScanInterval string `json:"scan_interval,omitempty"`

	// PublishRate caps deliveries per second within one scan.
	// 0 disables the cap.
	PublishRate int `json:"publish_rate,omitempty"`

	Storage StorageConfig `json:"storage,omitempty"`
	Logging LoggingConfig `json:"logging,omitempty"`
}

type StorageConfig struct {
	// Driver selects the persistence backend: "file" (default) or "sqlite".
	Driver string `json:"driver,omitempty"`

	// Path is the database file for the sqlite driver. Ignored by "file",
	// which derives its paths from data_dir.
	Path string `json:"path,omitempty"`

	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console *bool  `json:"console,omitempty"` // nil means true
	File    struct {
		Enabled bool   `json:"enabled,omitempty"`
		Path    string `json:"path,omitempty"`
	} `json:"file,omitempty"`
}

func Default() *Config {
	return &Config{
		DataDir:      "./data",
		ScanInterval: "1m",
		Storage:      StorageConfig{Driver: "file"},
		Logging:      LoggingConfig{Level: "info"},
	}
}

// Normalize fills defaults in place so downstream consumers never have to
// special-case empty fields.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
	if strings.TrimSpace(c.ScanInterval) == "" {
		c.ScanInterval = "1m"
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "file"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if _, err := c.ScanEvery(); err != nil {
		return err
	}
	if c.PublishRate < 0 {
		return fmt.Errorf("publish_rate: must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	return nil
}

// ScanEvery resolves scan_interval, defaulting to one minute.
func (c *Config) ScanEvery() (time.Duration, error) {
	return ParseDurationOrDefault("scan_interval", c.ScanInterval, time.Minute)
}

// LogConfig maps the logging block onto the logx config.
func (c *Config) LogConfig() logx.Config {
	console := true
	if c.Logging.Console != nil {
		console = *c.Logging.Console
	}
	return logx.Config{
		Level:   c.Logging.Level,
		Console: console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}
