package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	// AllowedUsers restricts the console to these user ids; empty allows everyone.
	// The admin is always allowed.
	AllowedUsers []int64 `yaml:"allowed_users" envconfig:"TELEGRAM_ALLOWED_USERS"`
	RunMode      string  `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// CloudConfig describes how the console reaches the provider API.
type CloudConfig struct {
	Region string `yaml:"region" envconfig:"CLOUD_REGION"`
	// EndpointTemplate expands {service} and {region}, e.g.
	// https://{service}.{region}.hc.sbercloud.ru
	EndpointTemplate   string `yaml:"endpoint_template" envconfig:"CLOUD_ENDPOINT_TEMPLATE"`
	TimeoutSeconds     int    `yaml:"timeout_seconds" envconfig:"CLOUD_TIMEOUT_SECONDS"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" envconfig:"CLOUD_INSECURE_SKIP_VERIFY"`
}

// SessionConfig controls in-memory dialog sessions.
type SessionConfig struct {
	// IdleTTLMinutes evicts sessions untouched for that long; 0 keeps them forever.
	IdleTTLMinutes       int `yaml:"idle_ttl_minutes" envconfig:"SESSION_IDLE_TTL_MINUTES"`
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes" envconfig:"SESSION_SWEEP_INTERVAL_MINUTES"`
}

// Config aggregates the console configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Cloud     CloudConfig     `yaml:"cloud"`
	Sessions  SessionConfig   `yaml:"sessions"`
}

const (
	// DefaultRegion is the provider region used when none is configured.
	DefaultRegion = "ru-moscow-1"
	// DefaultEndpointTemplate points at the SberCloud Advanced endpoints.
	DefaultEndpointTemplate = "https://{service}.{region}.hc.sbercloud.ru"
)

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	if err := cfg.Database.Normalize(); err != nil {
		return err
	}
	normalizeCloud(&cfg.Cloud)

	if cfg.Sessions.IdleTTLMinutes < 0 {
		return fmt.Errorf("sessions.idle_ttl_minutes must be >= 0")
	}
	if cfg.Sessions.IdleTTLMinutes > 0 && cfg.Sessions.SweepIntervalMinutes <= 0 {
		cfg.Sessions.SweepIntervalMinutes = 10
	}
	return nil
}

func normalizeCloud(c *CloudConfig) {
	c.Region = strings.TrimSpace(c.Region)
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	c.EndpointTemplate = strings.TrimRight(strings.TrimSpace(c.EndpointTemplate), "/")
	if c.EndpointTemplate == "" {
		c.EndpointTemplate = DefaultEndpointTemplate
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

// Allowed reports whether userID may use the console.
func (t TelegramConfig) Allowed(userID int64) bool {
	if len(t.AllowedUsers) == 0 || (t.AdminID != 0 && userID == t.AdminID) {
		return true
	}
	for _, id := range t.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
