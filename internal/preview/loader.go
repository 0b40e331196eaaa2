// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package preview shapes repository documents into post pages and keeps
// generated pages in a regenerating cache.
package preview

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/olegiv/ignews-go/internal/content"
	"github.com/olegiv/ignews-go/internal/dates"
	"github.com/olegiv/ignews-go/internal/richtext"
)

// Page kinds.
const (
	KindPreview = "preview"
	KindPost    = "post"
)

const (
	// DefaultBlocks is the number of leading body blocks shown to non-subscribers.
	DefaultBlocks = 4
	// DefaultRevalidate is how long a generated page is served before it is
	// regenerated in the background.
	DefaultRevalidate = 1800 * time.Second
)

// Post is the view model of a post page.
type Post struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	UpdatedAt string `json:"updatedAt"`
}

// Result is the output of one generation pass.
type Result struct {
	Post Post
	// Revalidate is the age after which the page is eligible for regeneration.
	// Zero means the page never goes stale.
	Revalidate time.Duration
}

// Fallback describes how slugs that were not pre-rendered are served.
type Fallback string

// FallbackBlocking generates unknown slugs on first request; the requester
// waits for the result.
const FallbackBlocking Fallback = "blocking"

// Paths is the set of slugs generated ahead of requests.
type Paths struct {
	Slugs    []string
	Fallback Fallback
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	Blocks     int
	Revalidate time.Duration
	Prerender  []string
}

// Loader fetches publications and turns them into Post view models.
type Loader struct {
	repo       content.Repository
	formatter  *dates.Formatter
	sanitizer  *richtext.Sanitizer
	serializer richtext.HTMLSerializer
	blocks     int
	revalidate time.Duration
	prerender  []string
}

// NewLoader creates a Loader. A nil sanitizer leaves serialized HTML untouched.
func NewLoader(repo content.Repository, formatter *dates.Formatter, sanitizer *richtext.Sanitizer, opts LoaderOptions) *Loader {
	if opts.Blocks < 1 {
		opts.Blocks = DefaultBlocks
	}
	if opts.Revalidate < 0 {
		opts.Revalidate = 0
	}
	return &Loader{
		repo:       repo,
		formatter:  formatter,
		sanitizer:  sanitizer,
		serializer: richtext.HTMLSerializer{Resolve: richtext.DefaultLinkResolver},
		blocks:     opts.Blocks,
		revalidate: opts.Revalidate,
		prerender:  slices.Clone(opts.Prerender),
	}
}

// Load builds the preview of slug: plain-text title, HTML of the first
// blocks of the body and the localized last publication date.
// It returns an error wrapping content.ErrNotFound for unknown slugs.
func (l *Loader) Load(ctx context.Context, slug string) (*Result, error) {
	return l.load(ctx, slug, l.blocks)
}

// LoadFull builds the complete article for subscribers.
func (l *Loader) LoadFull(ctx context.Context, slug string) (*Result, error) {
	return l.load(ctx, slug, -1)
}

// Paths returns the slugs to pre-render and the fallback for the rest.
func (l *Loader) Paths() Paths {
	return Paths{Slugs: slices.Clone(l.prerender), Fallback: FallbackBlocking}
}

// Blocks returns the preview length in blocks.
func (l *Loader) Blocks() int {
	return l.blocks
}

// Revalidate returns the regeneration interval attached to every result.
func (l *Loader) Revalidate() time.Duration {
	return l.revalidate
}

func (l *Loader) load(ctx context.Context, slug string, blocks int) (*Result, error) {
	if slug == "" {
		return nil, fmt.Errorf("empty slug: %w", content.ErrNotFound)
	}

	doc, err := l.repo.GetByUID(ctx, content.TypePublication, slug)
	if err != nil {
		return nil, fmt.Errorf("loading publication %q: %w", slug, err)
	}

	body := doc.Content
	if blocks >= 0 {
		body = richtext.First(body, blocks)
	}

	post := Post{
		Slug:    slug,
		Title:   richtext.AsText(doc.Title, " "),
		Content: l.sanitizer.Sanitize(l.serializer.Serialize(body)),
	}
	if !doc.LastPublicationDate.IsZero() {
		post.UpdatedAt = l.formatter.Format(doc.LastPublicationDate)
	}

	return &Result{Post: post, Revalidate: l.revalidate}, nil
}
