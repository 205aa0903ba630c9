package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "postpilot.yaml", `
data_dir: /var/lib/postpilot
scan_interval: 30s
publish_rate: 5
storage:
  driver: sqlite
  path: /var/lib/postpilot/postpilot.db
  busy_timeout: 5s
logging:
  level: debug
  file:
    enabled: true
    path: /var/log/postpilot.log
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.DataDir != "/var/lib/postpilot" {
		t.Fatalf("DataDir = %q", cfg.DataDir)
	}
	if d, err := cfg.ScanEvery(); err != nil || d != 30*time.Second {
		t.Fatalf("ScanEvery = (%v, %v)", d, err)
	}
	if cfg.PublishRate != 5 {
		t.Fatalf("PublishRate = %d", cfg.PublishRate)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/var/lib/postpilot/postpilot.db" {
		t.Fatalf("Storage = %+v", cfg.Storage)
	}
	lc := cfg.LogConfig()
	if lc.Level != "debug" || !lc.Console || !lc.File.Enabled {
		t.Fatalf("LogConfig = %+v", lc)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "postpilot.json", `{"data_dir":"./d","scan_interval":"2m"}`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d, err := cfg.ScanEvery(); err != nil || d != 2*time.Minute {
		t.Fatalf("ScanEvery = (%v, %v)", d, err)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "postpilot.yaml", "data_dir: ./somewhere\n")

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ScanInterval != "1m" {
		t.Fatalf("ScanInterval default = %q", cfg.ScanInterval)
	}
	if cfg.Storage.Driver != "file" {
		t.Fatalf("Storage.Driver default = %q", cfg.Storage.Driver)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("Logging.Level default = %q", cfg.Logging.Level)
	}
}

func TestParseRejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "unknown field", file: "c.yaml", body: "scan_intervall: 1m\n"},
		{name: "invalid duration", file: "c.yaml", body: "scan_interval: soon\n"},
		{name: "negative publish rate", file: "c.yaml", body: "publish_rate: -1\n"},
		{name: "unknown driver", file: "c.yaml", body: "storage:\n  driver: etcd\n"},
		{name: "trailing json", file: "c.json", body: `{"data_dir":"a"}{"data_dir":"b"}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, tt.file, tt.body)
			if _, err := NewManager(path).Parse(); err == nil {
				t.Fatal("expected parse to fail")
			}
		})
	}
}

func TestLoadCommitsAndGet(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "postpilot.yaml", "publish_rate: 3\n")
	m := NewManager(path)

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "postpilot.yaml", "publish_rate: 1\n")
	m := NewManager(path)

	ch := m.Subscribe(1)
	cfg := Default()
	m.publish(cfg)

	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("subscriber received a different config")
		}
	default:
		t.Fatal("expected a published config")
	}

	// A full buffer drops the stale update, keeping the newest.
	stale, fresh := Default(), Default()
	m.publish(stale)
	m.publish(fresh)
	if got := <-ch; got != fresh {
		t.Fatal("expected the newest config after overflow")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Unsubscribe")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", " 1h "); err != nil || d != time.Hour {
		t.Fatalf("got (%v, %v)", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty should be zero, got (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("negative duration must be rejected")
	}
	if d, err := ParseDurationOrDefault("x", "", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("default not applied: (%v, %v)", d, err)
	}
}
