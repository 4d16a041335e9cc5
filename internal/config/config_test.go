package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"EditorialDesk/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "desk.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://desk@localhost/desk
scheduler:
  timezone: Europe/Berlin
  jobs:
    - name: cold_drain
      at: "08:15"
    - name: weekly_summary
      enabled: false
scoring:
  batch: 7
sessions:
  ttl: 5m
feeds:
  - name: wire
    scanner: rss
    url: https://example.org/feed.xml
`)

	cfg := LoadFrom(path)

	if cfg.Database.Driver != "postgres" {
		t.Fatalf("unexpected driver: %s", cfg.Database.Driver)
	}
	if cfg.Scheduler.Location().String() != "Europe/Berlin" {
		t.Fatalf("unexpected location: %s", cfg.Scheduler.Location())
	}
	if cfg.Scoring.Batch != 7 || cfg.Scoring.ExcerptWeight != 2 {
		t.Fatalf("scoring merge failed: %+v", cfg.Scoring)
	}
	if cfg.Sessions.TTL != 5*time.Minute {
		t.Fatalf("unexpected ttl: %s", cfg.Sessions.TTL)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].Scanner != "rss" {
		t.Fatalf("unexpected feeds: %+v", cfg.Feeds)
	}

	byName := map[string]domain.JobDescriptor{}
	for _, d := range cfg.Scheduler.Descriptors() {
		byName[d.Name] = d
	}
	if len(byName) != 5 {
		t.Fatalf("expected 5 jobs, got %d", len(byName))
	}
	drain := byName[domain.JobColdDrain]
	if drain.At != (domain.ClockTime{Hour: 8, Minute: 15}) || drain.Recurrence != domain.RecurTwiceDaily {
		t.Fatalf("unexpected drain descriptor: %+v", drain)
	}
	if byName[domain.JobWeeklySummary].Enabled {
		t.Fatalf("weekly summary should be disabled")
	}
	if byName[domain.JobSourceDiscovery].Weekday != time.Sunday {
		t.Fatalf("unexpected discovery weekday: %s", byName[domain.JobSourceDiscovery].Weekday)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv(databaseDSNEnv, "file:override.db")
	t.Setenv(telegramOperatorsEnv, "11, 22,bogus")
	t.Setenv(deskSecretEnv, "s3cret")

	cfg := LoadFrom("")

	if cfg.Database.DSN != "file:override.db" {
		t.Fatalf("unexpected dsn: %s", cfg.Database.DSN)
	}
	if !cfg.IsOperator(22) || cfg.IsOperator(33) {
		t.Fatalf("unexpected operators: %v", cfg.Telegram.OperatorIDs)
	}
	if cfg.HTTP.Secret != "s3cret" {
		t.Fatalf("unexpected secret: %s", cfg.HTTP.Secret)
	}
}

func TestLoadFromBadTimezoneFallsBack(t *testing.T) {
	path := writeConfig(t, "scheduler:\n  timezone: Mars/Olympus\n")

	cfg := LoadFrom(path)
	if cfg.Scheduler.Location() != time.UTC && cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", cfg.Scheduler.Location())
	}
}

func TestHookEnabled(t *testing.T) {
	t.Parallel()

	cfg := Config{Hooks: HooksConfig{Disabled: []string{"Distribution"}}}
	if cfg.HookEnabled("distribution") {
		t.Fatalf("distribution should be disabled")
	}
	if !cfg.HookEnabled("share_card") {
		t.Fatalf("share_card should be enabled")
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Weekday{"friday": time.Friday, "Sat": time.Saturday, "": time.Monday, "xyz": time.Monday}
	for in, want := range cases {
		if got := parseWeekday(in); got != want {
			t.Fatalf("parseWeekday(%q) = %s, want %s", in, got, want)
		}
	}
}
