// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics provides Prometheus metrics for HTTP traffic, page
// generation and the subscription gate.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/olegiv/ignews-go/internal/cache"
)

const namespace = "ignews"

// Generation results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Cache lookup outcomes for generated pages.
const (
	LookupHit   = "hit"
	LookupStale = "stale"
	LookupMiss  = "miss"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Page generation: one loader pass per slug.
	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "generations_total",
			Help:      "Page generations by page kind and result",
		},
		[]string{"kind", "result"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "generation_duration_seconds",
			Help:      "Time spent fetching and shaping a page",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "lookups_total",
			Help:      "Generated page lookups by page kind and outcome (hit, stale, miss)",
		},
		[]string{"kind", "outcome"},
	)

	GateNavigations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "navigations_total",
			Help:      "Navigations issued to subscribed visitors",
		},
	)

	GateStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "streams_open",
			Help:      "Number of open session event streams",
		},
	)

	SubscriptionUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "updates_total",
			Help:      "Subscription status updates received by status",
		},
		[]string{"status"},
	)

	LogMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "messages_total",
			Help:      "Warning and error log messages by level",
		},
		[]string{"level"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "stats",
			Help:      "Page cache statistics",
		},
		[]string{"stat"},
	)
)

// ObserveGeneration records the result and duration of one generation pass.
func ObserveGeneration(kind, result string, d time.Duration) {
	Generations.WithLabelValues(kind, result).Inc()
	GenerationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveLookup records a generated-page cache lookup.
func ObserveLookup(kind, outcome string) {
	Lookups.WithLabelValues(kind, outcome).Inc()
}

// CacheStatsCollector periodically copies cache statistics into CacheEntries.
type CacheStatsCollector struct {
	provider cache.StatsProvider
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCacheStatsCollector creates a collector for provider.
func NewCacheStatsCollector(provider cache.StatsProvider) *CacheStatsCollector {
	return &CacheStatsCollector{
		provider: provider,
		stopChan: make(chan struct{}),
	}
}

// Start begins collecting every interval.
func (c *CacheStatsCollector) Start(interval time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopChan:
				return
			}
		}
	}()
}

func (c *CacheStatsCollector) collect() {
	s := c.provider.Stats()
	CacheEntries.WithLabelValues("items").Set(float64(s.Items))
	CacheEntries.WithLabelValues("hits").Set(float64(s.Hits))
	CacheEntries.WithLabelValues("misses").Set(float64(s.Misses))
	CacheEntries.WithLabelValues("hit_rate").Set(s.HitRate)
}

// Stop stops the collector and waits for it to exit.
func (c *CacheStatsCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}
