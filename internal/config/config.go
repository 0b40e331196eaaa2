// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the service configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Content sources supported by IGNEWS_CONTENT_SOURCE.
const (
	ContentSourcePrismic = "prismic"
	ContentSourceFiles   = "files"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// supportedLocales lists the date locales the preview formatter knows.
var supportedLocales = []string{"pt-BR", "en-US"}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"IGNEWS_DB_PATH" envDefault:"./data/ignews.db"`
	SessionSecret string `env:"IGNEWS_SESSION_SECRET,required"`
	ServerHost    string `env:"IGNEWS_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"IGNEWS_SERVER_PORT" envDefault:"3000"`
	Env           string `env:"IGNEWS_ENV" envDefault:"development"`
	LogLevel      string `env:"IGNEWS_LOG_LEVEL" envDefault:"info"`
	SiteName      string `env:"IGNEWS_SITE_NAME" envDefault:"Ig.news"`
	SiteURL       string `env:"IGNEWS_SITE_URL" envDefault:"http://localhost:3000"` // Public base URL used in the sitemap

	// Content repository
	// PrismicEndpoint is the API root, e.g. https://ignews.cdn.prismic.io/api/v2.
	// PrismicRateLimit is in requests per second; 0 disables limiting.
	ContentSource      string  `env:"IGNEWS_CONTENT_SOURCE" envDefault:"prismic"`
	PrismicEndpoint    string  `env:"IGNEWS_PRISMIC_ENDPOINT"`
	PrismicAccessToken string  `env:"IGNEWS_PRISMIC_ACCESS_TOKEN"`
	PrismicRateLimit   float64 `env:"IGNEWS_PRISMIC_RATE_LIMIT" envDefault:"20"`
	ContentDir         string  `env:"IGNEWS_CONTENT_DIR" envDefault:"./content"`

	// Cache configuration
	RedisURL     string `env:"IGNEWS_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"IGNEWS_CACHE_PREFIX" envDefault:"ignews:"` // Redis key prefix
	CacheMaxSize int    `env:"IGNEWS_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Preview generation
	RevalidateSeconds int      `env:"IGNEWS_REVALIDATE_SECONDS" envDefault:"1800"`
	PreviewBlocks     int      `env:"IGNEWS_PREVIEW_BLOCKS" envDefault:"4"`
	DateLocale        string   `env:"IGNEWS_DATE_LOCALE" envDefault:"pt-BR"`
	Timezone          string   `env:"IGNEWS_TIMEZONE" envDefault:"UTC"`
	SanitizeHTML      bool     `env:"IGNEWS_SANITIZE_HTML" envDefault:"true"`
	PrerenderSlugs    []string `env:"IGNEWS_PRERENDER_SLUGS" envSeparator:","`

	// Shared secret for billing webhooks and on-demand revalidation
	WebhookSecret string `env:"IGNEWS_WEBHOOK_SECRET"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// RevalidateInterval returns the regeneration interval of generated previews.
func (c Config) RevalidateInterval() time.Duration {
	return time.Duration(c.RevalidateSeconds) * time.Second
}

// Location returns the time zone used when formatting dates.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("IGNEWS_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("IGNEWS_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return fmt.Errorf("IGNEWS_SESSION_SECRET is a known default value and must not be used")
		}
	}

	if u, err := url.Parse(c.SiteURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("IGNEWS_SITE_URL must be an absolute http(s) URL, got %q", c.SiteURL)
	}

	switch c.ContentSource {
	case ContentSourcePrismic:
		if c.PrismicEndpoint == "" {
			return fmt.Errorf("IGNEWS_PRISMIC_ENDPOINT is required when IGNEWS_CONTENT_SOURCE=%s", ContentSourcePrismic)
		}
	case ContentSourceFiles:
		if c.ContentDir == "" {
			return fmt.Errorf("IGNEWS_CONTENT_DIR is required when IGNEWS_CONTENT_SOURCE=%s", ContentSourceFiles)
		}
	default:
		return fmt.Errorf("IGNEWS_CONTENT_SOURCE must be %q or %q, got %q",
			ContentSourcePrismic, ContentSourceFiles, c.ContentSource)
	}

	if c.PreviewBlocks < 1 {
		return fmt.Errorf("IGNEWS_PREVIEW_BLOCKS must be at least 1, got %d", c.PreviewBlocks)
	}
	if c.RevalidateSeconds < 0 {
		return fmt.Errorf("IGNEWS_REVALIDATE_SECONDS must not be negative, got %d", c.RevalidateSeconds)
	}
	if !isSupportedLocale(c.DateLocale) {
		return fmt.Errorf("IGNEWS_DATE_LOCALE must be one of %s, got %q",
			strings.Join(supportedLocales, ", "), c.DateLocale)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("IGNEWS_TIMEZONE: %w", err)
	}

	return nil
}

func isSupportedLocale(locale string) bool {
	for _, l := range supportedLocales {
		if strings.EqualFold(l, locale) {
			return true
		}
	}
	return false
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
