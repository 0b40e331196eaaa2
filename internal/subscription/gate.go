// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package subscription

import (
	"context"
	"net/url"
	"sync"

	"github.com/olegiv/ignews-go/internal/metrics"
)

// ArticlePath returns the full-article path of slug.
func ArticlePath(slug string) string {
	return "/posts/" + url.PathEscape(slug)
}

// Gate sends a subscribed visitor from a preview to the full article. It
// observes session changes and navigates once per observed transition of
// HasActiveSubscription from false to true. Listeners buffer only the latest
// state, so a transition overwritten before it is read is never observed.
type Gate struct {
	target   string
	navigate func(path string)

	mu     sync.Mutex
	active bool
}

// NewGate creates a gate for the preview of slug. navigate is called with
// the article path.
func NewGate(slug string, navigate func(path string)) *Gate {
	return &Gate{target: ArticlePath(slug), navigate: navigate}
}

// Target returns the navigation target.
func (g *Gate) Target() string {
	return g.target
}

// Observe evaluates one session notification and reports whether it caused a
// navigation. A nil session is unresolved and leaves the gate unchanged.
func (g *Gate) Observe(s *Session) bool {
	if s == nil {
		return false
	}

	active := HasActiveSubscription(s)
	g.mu.Lock()
	fire := active && !g.active
	g.active = active
	g.mu.Unlock()

	if fire {
		metrics.GateNavigations.Inc()
		g.navigate(g.target)
	}
	return fire
}

// Run observes initial and then every value from updates until ctx is done
// or updates is closed.
func (g *Gate) Run(ctx context.Context, initial *Session, updates <-chan Session) error {
	g.Observe(initial)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-updates:
			if !ok {
				return nil
			}
			g.Observe(&s)
		}
	}
}
