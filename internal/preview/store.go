// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olegiv/ignews-go/internal/cache"
	"github.com/olegiv/ignews-go/internal/content"
	"github.com/olegiv/ignews-go/internal/metrics"
)

const (
	defaultRetain          = 24 * time.Hour
	defaultGenerateTimeout = 30 * time.Second
)

// StoreOptions configures a Store.
type StoreOptions struct {
	// Retain is how long a generated page stays in the cache. Stale pages
	// are served while they regenerate, so Retain is kept above the loader's
	// revalidate interval.
	Retain time.Duration

	// GenerateTimeout bounds one loader pass. Generation is detached from
	// the request that triggered it.
	GenerateTimeout time.Duration

	Logger *slog.Logger
}

type entry struct {
	Post        Post          `json:"post"`
	GeneratedAt time.Time     `json:"generated_at"`
	Revalidate  time.Duration `json:"revalidate"`
}

func (e *entry) stale(now time.Time) bool {
	return e.Revalidate > 0 && now.Sub(e.GeneratedAt) >= e.Revalidate
}

type pageKey struct {
	kind string
	slug string
}

func (k pageKey) String() string {
	return "page:" + k.kind + ":" + k.slug
}

// Store serves generated pages. A miss generates the page while the caller
// waits; a stale hit is served immediately and regenerated in the background.
// Concurrent generations of one page share a single loader pass.
type Store struct {
	loader  *Loader
	pages   *cache.TypedCache[entry]
	group   singleflight.Group
	logger  *slog.Logger
	retain  time.Duration
	timeout time.Duration
	now     func() time.Time

	mu           sync.Mutex
	tracked      map[pageKey]struct{}
	regenerating map[pageKey]struct{}
	wg           sync.WaitGroup
}

// NewStore creates a Store generating pages with loader into c.
func NewStore(loader *Loader, c cache.Cache, opts StoreOptions) *Store {
	retain := opts.Retain
	if retain <= 0 {
		retain = defaultRetain
	}
	if r := loader.Revalidate(); retain < 2*r {
		retain = 2 * r
	}
	timeout := opts.GenerateTimeout
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		loader:       loader,
		pages:        cache.NewTypedCache[entry](c, retain),
		logger:       logger,
		retain:       retain,
		timeout:      timeout,
		now:          time.Now,
		tracked:      make(map[pageKey]struct{}),
		regenerating: make(map[pageKey]struct{}),
	}
}

// Preview returns the preview page of slug.
func (s *Store) Preview(ctx context.Context, slug string) (*Post, error) {
	return s.get(ctx, pageKey{kind: KindPreview, slug: slug})
}

// Article returns the full article page of slug.
func (s *Store) Article(ctx context.Context, slug string) (*Post, error) {
	return s.get(ctx, pageKey{kind: KindPost, slug: slug})
}

func (s *Store) get(ctx context.Context, key pageKey) (*Post, error) {
	if e, ok := s.pages.Get(ctx, key.String()); ok {
		s.track(key)
		if e.stale(s.now()) {
			metrics.ObserveLookup(key.kind, metrics.LookupStale)
			s.regenerateAsync(key)
		} else {
			metrics.ObserveLookup(key.kind, metrics.LookupHit)
		}
		return &e.Post, nil
	}

	metrics.ObserveLookup(key.kind, metrics.LookupMiss)
	e, err := s.generate(ctx, key)
	if err != nil {
		return nil, err
	}
	return &e.Post, nil
}

// generate runs one loader pass for key and caches the result. Unknown slugs
// are removed from the cache and never cached.
func (s *Store) generate(ctx context.Context, key pageKey) (*entry, error) {
	v, err, _ := s.group.Do(key.String(), func() (any, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		start := time.Now()
		var res *Result
		var err error
		if key.kind == KindPost {
			res, err = s.loader.LoadFull(genCtx, key.slug)
		} else {
			res, err = s.loader.Load(genCtx, key.slug)
		}

		switch {
		case errors.Is(err, content.ErrNotFound):
			metrics.ObserveGeneration(key.kind, metrics.ResultNotFound, time.Since(start))
			s.forget(genCtx, key)
			return nil, err
		case err != nil:
			metrics.ObserveGeneration(key.kind, metrics.ResultError, time.Since(start))
			return nil, err
		}
		metrics.ObserveGeneration(key.kind, metrics.ResultOK, time.Since(start))

		e := &entry{Post: res.Post, GeneratedAt: s.now(), Revalidate: res.Revalidate}
		if err := s.pages.SetWithTTL(genCtx, key.String(), e, s.retain); err != nil {
			s.logger.Warn("failed to cache generated page", "page", key.String(), "error", err)
		}
		s.track(key)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

// regenerateAsync starts a background regeneration of key unless one is
// already running. Failures keep the stale page in place.
func (s *Store) regenerateAsync(key pageKey) {
	s.mu.Lock()
	if _, running := s.regenerating[key]; running {
		s.mu.Unlock()
		return
	}
	s.regenerating[key] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.regenerating, key)
			s.mu.Unlock()
		}()

		_, err := s.generate(context.Background(), key)
		switch {
		case errors.Is(err, content.ErrNotFound):
			s.logger.Info("page removed upstream", "page", key.String())
		case err != nil:
			s.logger.Warn("background regeneration failed, serving stale page", "page", key.String(), "error", err)
		default:
			s.logger.Debug("page regenerated", "page", key.String())
		}
	}()
}

// Prerender generates the preview of every configured slug.
func (s *Store) Prerender(ctx context.Context) error {
	var errs []error
	for _, slug := range s.loader.Paths().Slugs {
		if _, err := s.generate(ctx, pageKey{kind: KindPreview, slug: slug}); err != nil {
			errs = append(errs, fmt.Errorf("prerendering %q: %w", slug, err))
		}
	}
	return errors.Join(errs...)
}

// Revalidate regenerates every tracked page that has gone stale and returns
// how many were regenerated. Pages evicted from the cache stop being tracked.
func (s *Store) Revalidate(ctx context.Context) (int, error) {
	var (
		count int
		errs  []error
	)
	for _, key := range s.trackedKeys() {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		e, ok := s.pages.Get(ctx, key.String())
		if !ok {
			s.untrack(key)
			continue
		}
		if !e.stale(s.now()) {
			continue
		}

		_, err := s.generate(ctx, key)
		switch {
		case errors.Is(err, content.ErrNotFound):
		case err != nil:
			errs = append(errs, fmt.Errorf("revalidating %s: %w", key, err))
		default:
			count++
		}
	}
	return count, errors.Join(errs...)
}

// Invalidate drops every generated page of slug. The next request generates
// it again.
func (s *Store) Invalidate(ctx context.Context, slug string) error {
	var errs []error
	for _, kind := range []string{KindPreview, KindPost} {
		key := pageKey{kind: kind, slug: slug}
		if err := s.pages.Delete(ctx, key.String()); err != nil {
			errs = append(errs, err)
		}
		s.untrack(key)
	}
	return errors.Join(errs...)
}

// Tracked returns the cache keys of the pages generated by this process.
func (s *Store) Tracked() []string {
	keys := s.trackedKeys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return out
}

// PreviewSlugs returns the sorted slugs of the previews this process has
// generated and still tracks.
func (s *Store) PreviewSlugs() []string {
	var slugs []string
	for _, k := range s.trackedKeys() {
		if k.kind == KindPreview {
			slugs = append(slugs, k.slug)
		}
	}
	slices.Sort(slugs)
	return slugs
}

// Wait blocks until background regenerations have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) forget(ctx context.Context, key pageKey) {
	if err := s.pages.Delete(ctx, key.String()); err != nil {
		s.logger.Warn("failed to drop cached page", "page", key.String(), "error", err)
	}
	s.untrack(key)
}

func (s *Store) track(key pageKey) {
	s.mu.Lock()
	s.tracked[key] = struct{}{}
	s.mu.Unlock()
}

func (s *Store) untrack(key pageKey) {
	s.mu.Lock()
	delete(s.tracked, key)
	s.mu.Unlock()
}

func (s *Store) trackedKeys() []pageKey {
	s.mu.Lock()
	keys := make([]pageKey, 0, len(s.tracked))
	for k := range s.tracked {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
