// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic regeneration of generated pages.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// MinInterval is the shortest revalidation interval the scheduler uses.
const MinInterval = time.Minute

// Revalidator regenerates stale pages and reports how many were refreshed.
type Revalidator interface {
	Revalidate(ctx context.Context) (int, error)
}

// Scheduler periodically revalidates generated pages.
type Scheduler struct {
	pages    Revalidator
	cron     *cron.Cron
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// Interval returns the schedule for a page revalidation period: half the
// period, at least MinInterval. Zero means pages never go stale and nothing
// needs scheduling.
func Interval(revalidate time.Duration) time.Duration {
	if revalidate <= 0 {
		return 0
	}
	if half := revalidate / 2; half > MinInterval {
		return half
	}
	return MinInterval
}

// New creates a new scheduler running every interval.
func New(pages Revalidator, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	return &Scheduler{
		pages:    pages,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		logger:   logger,
		interval: interval,
		timeout:  interval,
	}
}

// Start begins the scheduler with the revalidation job.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}

	if _, err := s.cron.AddFunc("@every "+s.interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "interval", s.interval, "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RunOnce revalidates generated pages once.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.pages.Revalidate(ctx)
	if err != nil {
		s.logger.Error("failed to revalidate pages", "refreshed", n, "error", err)
		return n, err
	}
	if n > 0 {
		s.logger.Info("revalidated pages", "refreshed", n, "duration", time.Since(start).Round(time.Millisecond))
	}
	return n, nil
}
