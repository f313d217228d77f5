package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Resolver.CacheCapacity != 200 || cfg.Fetcher.CacheCapacity != 100 {
		t.Fatalf("expected default cache capacities 200/100, got %d/%d",
			cfg.Resolver.CacheCapacity, cfg.Fetcher.CacheCapacity)
	}
	if got := cfg.ResolverTimeout(); got != 5*time.Second {
		t.Fatalf("expected resolver timeout 5s, got %v", got)
	}
	if got := cfg.Debounce(); got != 100*time.Millisecond {
		t.Fatalf("expected debounce 100ms, got %v", got)
	}
	delays := cfg.RetryDelays()
	want := []time.Duration{0, time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d retry delays, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("retry delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
source:
  base_url: https://wiki.example.org
  user_agent: bingo-agent
  timeout_seconds: 30
resolver:
  cache_capacity: 64
  timeout_ms: 2500
fetcher:
  cache_capacity: 32
  retry_delays_ms: [0, 500]
nav:
  debounce_ms: 250
db:
  dsn: postgres://localhost/bingo
  table: snapshots
pubsub:
  project_id: my-project
  topic_name: completions
storage:
  gcs_bucket: bucket
  prefix: archives
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Source.BaseURL != "https://wiki.example.org" || cfg.Source.UserAgent != "bingo-agent" {
		t.Fatalf("expected source overrides to apply: %+v", cfg.Source)
	}
	if got := cfg.SourceTimeout(); got != 30*time.Second {
		t.Fatalf("expected source timeout 30s, got %v", got)
	}
	if cfg.Resolver.CacheCapacity != 64 || cfg.Fetcher.CacheCapacity != 32 {
		t.Fatalf("expected cache overrides to apply")
	}
	if got := cfg.Debounce(); got != 250*time.Millisecond {
		t.Fatalf("expected debounce 250ms, got %v", got)
	}
	if len(cfg.RetryDelays()) != 2 {
		t.Fatalf("expected 2 retry delays, got %d", len(cfg.RetryDelays()))
	}
	if cfg.DB.DSN == "" || cfg.DB.Table != "snapshots" {
		t.Fatalf("expected db overrides to apply: %+v", cfg.DB)
	}
	if cfg.Logging.Development {
		t.Fatal("expected development logging to be disabled")
	}
}

func TestNavigateTimeoutCoversRetrySchedule(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Source:   SourceConfig{TimeoutSeconds: 15},
		Resolver: ResolverConfig{TimeoutMs: 5000},
		Fetcher:  FetcherConfig{RetryDelaysMs: []int{0, 1000, 2000}},
	}

	// Per endpoint: 3 attempts x 15s plus 3s of backoff = 48s. Both
	// endpoints for the target and again for a replacement, a 5s redirect
	// resolution before each cycle, and 5s of headroom.
	want := 2*(2*48*time.Second+5*time.Second) + 5*time.Second
	if got := cfg.NavigateTimeout(); got != want {
		t.Fatalf("expected navigate timeout %v, got %v", want, got)
	}

	// The route budget must never undercut a single full fetch cycle.
	if cfg.NavigateTimeout() < 2*48*time.Second {
		t.Fatal("navigate timeout below one full fetch cycle")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:   ServerConfig{Port: 8080},
		Source:   SourceConfig{BaseURL: "https://en.wikipedia.org", TimeoutSeconds: 15},
		Resolver: ResolverConfig{CacheCapacity: 200, TimeoutMs: 5000},
		Fetcher:  FetcherConfig{CacheCapacity: 100, RetryDelaysMs: []int{0}},
		Nav:      NavConfig{DebounceMs: 100},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "missing base url",
			cfg: func() Config {
				c := base
				c.Source.BaseURL = ""
				return c
			}(),
			want: "source.base_url",
		},
		{
			name: "invalid resolver timeout",
			cfg: func() Config {
				c := base
				c.Resolver.TimeoutMs = 0
				return c
			}(),
			want: "resolver.timeout_ms",
		},
		{
			name: "empty retry schedule",
			cfg: func() Config {
				c := base
				c.Fetcher.RetryDelaysMs = nil
				return c
			}(),
			want: "fetcher.retry_delays_ms",
		},
		{
			name: "invalid debounce",
			cfg: func() Config {
				c := base
				c.Nav.DebounceMs = 0
				return c
			}(),
			want: "nav.debounce_ms",
		},
		{
			name: "pubsub missing topic",
			cfg: func() Config {
				c := base
				c.PubSub.ProjectID = "my-project"
				return c
			}(),
			want: "pubsub.topic_name",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
