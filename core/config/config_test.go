package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  run_mode: polling
  allowed_users: [10, 20]
sessions:
  idle_ttl_minutes: 60
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Cloud.Region != DefaultRegion || cfg.Cloud.EndpointTemplate != DefaultEndpointTemplate {
		t.Fatalf("cloud defaults not applied: %+v", cfg.Cloud)
	}
	if cfg.Cloud.TimeoutSeconds != 30 {
		t.Fatalf("timeout = %d", cfg.Cloud.TimeoutSeconds)
	}
	if cfg.Sessions.SweepIntervalMinutes != 10 {
		t.Fatalf("sweep interval = %d", cfg.Sessions.SweepIntervalMinutes)
	}
	if cfg.Database.Enabled {
		t.Fatal("database must stay disabled by default")
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-yaml"
cloud:
  region: ru-moscow-1
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("CLOUD_ENDPOINT_TEMPLATE", "http://127.0.0.1:8080/")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Cloud.EndpointTemplate != "http://127.0.0.1:8080" {
		t.Fatalf("endpoint template = %q", cfg.Cloud.EndpointTemplate)
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := map[string]Config{
		"missing token": {},
		"bad run mode":  {Telegram: TelegramConfig{Token: "t", RunMode: "push"}},
		"webhook without url": {
			Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook},
		},
		"bad exclusion": {
			Telegram:  TelegramConfig{Token: "t"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}},
		},
		"database without host": {
			Telegram: TelegramConfig{Token: "t"},
			Database: DatabaseConfig{Enabled: true, Name: "x"},
		},
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := Normalize(&cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestTelegramAllowed(t *testing.T) {
	open := TelegramConfig{}
	if !open.Allowed(42) {
		t.Fatal("empty allowlist must allow everyone")
	}
	restricted := TelegramConfig{AdminID: 1, AllowedUsers: []int64{7}}
	if !restricted.Allowed(1) || !restricted.Allowed(7) {
		t.Fatal("admin and listed users must be allowed")
	}
	if restricted.Allowed(8) {
		t.Fatal("unlisted user must be rejected")
	}
}

func TestDatabaseConfigURL(t *testing.T) {
	cfg := DatabaseConfig{Enabled: true, Host: "db", User: "bot", Password: "p@ss", Name: "cloudbot"}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Port != "5432" || cfg.SSLMode != "disable" || cfg.MaxConnections != 4 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	want := "postgres://bot:p%40ss@db:5432/cloudbot?sslmode=disable"
	if got := cfg.URL(); got != want {
		t.Fatalf("URL = %s, want %s", got, want)
	}
}
