package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/steam-review-harvester/pkg/logging"
)

// chdirTemp runs the test in an empty directory so no harvester.yaml is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"source.path", cfg.Source.Path, "appid.txt"},
		{"store.dir", cfg.Store.Dir, "data"},
		{"steam.base_url", cfg.Steam.BaseURL, "https://store.steampowered.com"},
		{"steam.timeout", cfg.Steam.Timeout, 10 * time.Second},
		{"steam.language", cfg.Steam.Language, "english"},
		{"steam.filter", cfg.Steam.Filter, "recent"},
		{"steam.review_type", cfg.Steam.ReviewType, "all"},
		{"steam.purchase_type", cfg.Steam.PurchaseType, "all"},
		{"steam.num_per_page", cfg.Steam.NumPerPage, 100},
		{"harvest.workers", cfg.Harvest.Workers, 4},
		{"harvest.max_attempts", cfg.Harvest.MaxAttempts, 3},
		{"harvest.initial_backoff", cfg.Harvest.InitialBackoff, time.Second},
		{"redis.addr", cfg.Redis.Addr, ""},
		{"redis.progress_ttl", cfg.Redis.ProgressTTL, 7 * 24 * time.Hour},
		{"log.level", cfg.Log.Level, "info"},
		{"metrics.addr", cfg.Metrics.Addr, ""},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if cfg.RedisEnabled() {
		t.Error("RedisEnabled() = true with empty addr")
	}
}

func TestLoad_FromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  path: links.txt
store:
  dir: out
steam:
  timeout: 3s
  num_per_page: 20
  filter: updated
harvest:
  workers: 8
  max_attempts: 1
redis:
  addr: localhost:6379
log:
  level: debug
  pretty: true
`
	if err := os.WriteFile(filepath.Join(dir, "harvester.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.Path != "links.txt" || cfg.Store.Dir != "out" {
		t.Errorf("paths = %q, %q", cfg.Source.Path, cfg.Store.Dir)
	}
	if cfg.Steam.Timeout != 3*time.Second {
		t.Errorf("steam.timeout = %v, want 3s", cfg.Steam.Timeout)
	}
	if cfg.Steam.NumPerPage != 20 || cfg.Steam.Filter != "updated" {
		t.Errorf("steam params = %d, %q", cfg.Steam.NumPerPage, cfg.Steam.Filter)
	}
	if cfg.Harvest.Workers != 8 || cfg.Harvest.MaxAttempts != 1 {
		t.Errorf("harvest = %+v", cfg.Harvest)
	}
	if !cfg.RedisEnabled() {
		t.Error("RedisEnabled() = false, want true")
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Pretty {
		t.Errorf("log = %+v", cfg.Log)
	}
	// Untouched keys keep their defaults.
	if cfg.Steam.Language != "english" {
		t.Errorf("steam.language = %q, want english", cfg.Steam.Language)
	}
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	chdirTemp(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("store:\n  dir: elsewhere\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Dir != "elsewhere" {
		t.Errorf("store.dir = %q, want elsewhere", cfg.Store.Dir)
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	chdirTemp(t)
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load() error = nil, want error for missing explicit file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)

	t.Setenv("HARVESTER_STORE_DIR", "/tmp/reviews")
	t.Setenv("HARVESTER_HARVEST_WORKERS", "2")
	t.Setenv("HARVESTER_STEAM_REQUESTS_PER_SECOND", "1.5")
	t.Setenv("HARVESTER_HARVEST_MAX_BACKOFF", "1m")
	t.Setenv("HARVESTER_REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Dir != "/tmp/reviews" {
		t.Errorf("store.dir = %q", cfg.Store.Dir)
	}
	if cfg.Harvest.Workers != 2 {
		t.Errorf("harvest.workers = %d, want 2", cfg.Harvest.Workers)
	}
	if cfg.Steam.RequestsPerSecond != 1.5 {
		t.Errorf("steam.requests_per_second = %v, want 1.5", cfg.Steam.RequestsPerSecond)
	}
	if cfg.Harvest.MaxBackoff != time.Minute {
		t.Errorf("harvest.max_backoff = %v, want 1m", cfg.Harvest.MaxBackoff)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("redis.addr = %q", cfg.Redis.Addr)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HARVESTER_STEAM_NUM_PER_PAGE", "500")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "num_per_page") {
		t.Errorf("Load() error = %v, want num_per_page error", err)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	chdirTemp(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"page size zero", func(c *Config) { c.Steam.NumPerPage = 0 }, "num_per_page"},
		{"page size too large", func(c *Config) { c.Steam.NumPerPage = 101 }, "num_per_page"},
		{"no workers", func(c *Config) { c.Harvest.Workers = 0 }, "workers"},
		{"no attempts", func(c *Config) { c.Harvest.MaxAttempts = 0 }, "max_attempts"},
		{"unknown filter", func(c *Config) { c.Steam.Filter = "funny" }, "filter"},
		{"helpfulness filter", func(c *Config) { c.Steam.Filter = "all" }, "filter"},
		{"unknown review type", func(c *Config) { c.Steam.ReviewType = "mixed" }, "review_type"},
		{"unknown purchase type", func(c *Config) { c.Steam.PurchaseType = "gift" }, "purchase_type"},
		{"zero timeout", func(c *Config) { c.Steam.Timeout = 0 }, "timeout"},
		{"negative rate", func(c *Config) { c.Steam.RequestsPerSecond = -1 }, "requests_per_second"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"empty store dir", func(c *Config) { c.Store.Dir = "" }, "store.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := validConfig(t)
	cfg.Steam.BaseURL = "http://localhost:8080/"
	cfg.Steam.NumPerPage = 25
	cfg.Harvest.MaxAttempts = 5
	cfg.Log.Level = "warn"
	cfg.Log.Pretty = true

	sc := cfg.SteamClient()
	if sc.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", sc.BaseURL)
	}
	if sc.Params.NumPerPage != 25 || sc.Params.Language != "english" {
		t.Errorf("Params = %+v", sc.Params)
	}

	retry := cfg.Retry()
	if retry.MaxAttempts != 5 || retry.BackoffMultiplier != 2.0 {
		t.Errorf("Retry() = %+v", retry)
	}

	lc := cfg.Logging()
	if lc.Level != logging.LevelWarn || !lc.Pretty {
		t.Errorf("Logging() = %+v", lc)
	}
}
