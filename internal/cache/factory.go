// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Backend names reported by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when set. Example: redis://localhost:6379/0
	RedisURL string

	// Prefix is the key prefix for Redis.
	Prefix string

	DefaultTTL      time.Duration
	MaxSize         int // Memory backend only, 0 = unlimited
	CleanupInterval time.Duration

	// FallbackToMemory uses the memory backend when Redis cannot be reached.
	FallbackToMemory bool
}

// New creates the configured cache backend and reports which backend is in use.
func New(cfg Config, logger *slog.Logger) (Cache, string, error) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(cfg)
		if err == nil {
			return rc, BackendRedis, nil
		}
		if !cfg.FallbackToMemory {
			return nil, "", err
		}
		if logger != nil {
			logger.Warn("redis unavailable, falling back to memory cache", "url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		}
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	}), BackendMemory, nil
}
