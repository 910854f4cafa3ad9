// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bcem/butler/internal/errs"
)

// Event store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the butler.
type Config struct {
	// Gemini
	GeminiAPIKey         string
	GeminiModel          string
	GeminiReasoningModel string
	GeminiBaseURL        string
	LLMTimeout           time.Duration
	LLMRateLimit         float64

	// Telegram
	TelegramBotToken      string
	TelegramChatID        string
	TelegramWebhookSecret string

	// Pushover (optional)
	PushoverAPIKey  string
	PushoverUserKey string
	PushoverAPIURL  string

	// Google Calendar (optional)
	GoogleServiceAccountJSON string
	GoogleCalendarID         string

	// Links
	EnableLinkShortening bool
	ShortIOAPIKey        string
	ShortIODomain        string

	// Ingestion
	EmailAllowlist  string
	SMTPAddr        string
	SMTPDomain      string
	SMTPRecipients  []string
	MaxMessageBytes int64

	// Redis
	RedisURL    string
	EmailsQueue string
	MaxAttempts int
	DedupTTL    time.Duration

	// Pending events
	EventStoreBackend string
	EventTTL          time.Duration
	DatabaseURL       string

	// Server
	Port     int
	LogLevel slog.Level
}

// rawConfig mirrors the YAML structure for unmarshalling. Every value may
// be overridden by its environment variable.
type rawConfig struct {
	Gemini struct {
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		ReasoningModel string  `yaml:"reasoning_model"`
		BaseURL        string  `yaml:"base_url"`
		Timeout        string  `yaml:"timeout"`
		RateLimit      float64 `yaml:"rate_limit"`
	} `yaml:"gemini"`
	Telegram struct {
		BotToken      string `yaml:"bot_token"`
		ChatID        string `yaml:"chat_id"`
		WebhookSecret string `yaml:"webhook_secret"`
	} `yaml:"telegram"`
	Pushover struct {
		APIKey  string `yaml:"api_key"`
		UserKey string `yaml:"user_key"`
		APIURL  string `yaml:"api_url"`
	} `yaml:"pushover"`
	Calendar struct {
		ServiceAccountJSON string `yaml:"service_account_json"`
		CalendarID         string `yaml:"calendar_id"`
	} `yaml:"calendar"`
	Links struct {
		Shorten bool   `yaml:"shorten"`
		APIKey  string `yaml:"shortio_api_key"`
		Domain  string `yaml:"shortio_domain"`
	} `yaml:"links"`
	Ingestion struct {
		Allowlist  []string `yaml:"allowlist"`
		SMTPAddr   string   `yaml:"smtp_addr"`
		SMTPDomain string   `yaml:"smtp_domain"`
		Recipients []string `yaml:"recipients"`
	} `yaml:"ingestion"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Emails string `yaml:"emails"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	EventStore struct {
		Backend     string `yaml:"backend"`
		TTL         string `yaml:"ttl"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"event_store"`
}

// Load reads configuration from the YAML file at CONFIG_PATH (with env var
// expansion) and environment variables. The file is optional. With
// BUTLER_ENV=development a .env file in the working directory is loaded
// first.
func Load() (*Config, error) {
	if os.Getenv("BUTLER_ENV") == "development" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	var raw rawConfig
	configPath := envOrDefault("CONFIG_PATH", "config.yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("no config file, using environment only", "path", configPath)
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	default:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	cfg := &Config{
		GeminiAPIKey:         envOrDefault("GEMINI_API_KEY", raw.Gemini.APIKey),
		GeminiModel:          envOrDefault("GEMINI_MODEL", raw.Gemini.Model),
		GeminiReasoningModel: envOrDefault("GEMINI_REASONING_MODEL", raw.Gemini.ReasoningModel),
		GeminiBaseURL:        envOrDefault("GEMINI_BASE_URL", raw.Gemini.BaseURL),
		LLMTimeout:           envOrDefaultDuration("LLM_TIMEOUT", parseDuration(raw.Gemini.Timeout, 60*time.Second)),
		LLMRateLimit:         envOrDefaultFloat("LLM_RATE_LIMIT", raw.Gemini.RateLimit),

		TelegramBotToken:      envOrDefault("TELEGRAM_BOT_TOKEN", raw.Telegram.BotToken),
		TelegramChatID:        envOrDefault("TELEGRAM_TO_CHAT_ID", raw.Telegram.ChatID),
		TelegramWebhookSecret: envOrDefault("TELEGRAM_WEBHOOK_SECRET", raw.Telegram.WebhookSecret),

		PushoverAPIKey:  envOrDefault("PUSHOVER_API_KEY", raw.Pushover.APIKey),
		PushoverUserKey: envOrDefault("PUSHOVER_USER_KEY", raw.Pushover.UserKey),
		PushoverAPIURL:  envOrDefault("PUSHOVER_API_URL", raw.Pushover.APIURL),

		GoogleServiceAccountJSON: envOrDefault("GOOGLE_SERVICE_ACCOUNT_JSON_KEY", raw.Calendar.ServiceAccountJSON),
		GoogleCalendarID:         envOrDefault("GOOGLE_CALENDAR_ID", firstNonEmpty(raw.Calendar.CalendarID, "primary")),

		EnableLinkShortening: envOrDefaultBool("ENABLE_LINK_SHORTENING", raw.Links.Shorten),
		ShortIOAPIKey:        envOrDefault("SHORTIO_API_KEY", raw.Links.APIKey),
		ShortIODomain:        envOrDefault("SHORTIO_DOMAIN", raw.Links.Domain),

		EmailAllowlist:  envOrDefault("EMAIL_ALLOWLIST", strings.Join(raw.Ingestion.Allowlist, ",")),
		SMTPAddr:        envOrDefault("SMTP_ADDR", firstNonEmpty(raw.Ingestion.SMTPAddr, ":2525")),
		SMTPDomain:      envOrDefault("SMTP_DOMAIN", firstNonEmpty(raw.Ingestion.SMTPDomain, "localhost")),
		SMTPRecipients:  splitList(envOrDefault("SMTP_RECIPIENTS", strings.Join(raw.Ingestion.Recipients, ","))),
		MaxMessageBytes: int64(envOrDefaultInt("SMTP_MAX_MESSAGE_BYTES", 10<<20)),

		RedisURL:    envOrDefault("REDIS_URL", firstNonEmpty(raw.Redis.URL, "redis://localhost:6379/0")),
		EmailsQueue: envOrDefault("EMAILS_QUEUE", firstNonEmpty(raw.Redis.Queues.Emails, "butler:emails")),
		MaxAttempts: envOrDefaultInt("MAX_ATTEMPTS", 3),
		DedupTTL:    envOrDefaultDuration("DEDUP_TTL", 72*time.Hour),

		EventStoreBackend: strings.ToLower(envOrDefault("EVENT_STORE_BACKEND", firstNonEmpty(raw.EventStore.Backend, BackendRedis))),
		EventTTL:          envOrDefaultDuration("EVENT_TTL", parseDuration(raw.EventStore.TTL, 30*24*time.Hour)),
		DatabaseURL:       envOrDefault("DATABASE_URL", raw.EventStore.DatabaseURL),

		Port:     envOrDefaultInt("PORT", 8080),
		LogLevel: parseLevel(os.Getenv("LOG_LEVEL")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing required setting as an
// *errs.ConfigError. Optional integrations are not checked here; each
// disables itself when unset.
func (c *Config) Validate() error {
	required := []struct{ key, value string }{
		{"GEMINI_API_KEY", c.GeminiAPIKey},
		{"GEMINI_MODEL", c.GeminiModel},
		{"TELEGRAM_BOT_TOKEN", c.TelegramBotToken},
		{"TELEGRAM_TO_CHAT_ID", c.TelegramChatID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &errs.ConfigError{Key: r.key}
		}
	}

	switch c.EventStoreBackend {
	case BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return &errs.ConfigError{Key: "DATABASE_URL"}
		}
	default:
		return fmt.Errorf("EVENT_STORE_BACKEND: unknown backend %q", c.EventStoreBackend)
	}

	if c.EnableLinkShortening && (c.ShortIOAPIKey == "" || c.ShortIODomain == "") {
		slog.Warn("link shortening enabled without Short.io credentials, links will only be resolved")
	}
	return nil
}

// PushoverEnabled reports whether push notifications are configured.
func (c *Config) PushoverEnabled() bool {
	return c.PushoverAPIKey != "" && c.PushoverUserKey != ""
}

// CalendarEnabled reports whether calendar insertion is configured.
func (c *Config) CalendarEnabled() bool {
	return c.GoogleServiceAccountJSON != ""
}

// ShortIOEnabled reports whether shortening can actually run.
func (c *Config) ShortIOEnabled() bool {
	return c.EnableLinkShortening && c.ShortIOAPIKey != "" && c.ShortIODomain != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
