// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package preview

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olegiv/ignews-go/internal/content"
	"github.com/olegiv/ignews-go/internal/dates"
	"github.com/olegiv/ignews-go/internal/richtext"
)

// fakeRepo is an in-memory content.Repository that counts lookups.
type fakeRepo struct {
	mu    sync.Mutex
	docs  map[string]*content.Document
	err   error
	calls atomic.Int32

	// release, when set, holds every lookup until it is closed.
	release chan struct{}
}

func newFakeRepo(docs ...*content.Document) *fakeRepo {
	r := &fakeRepo{docs: make(map[string]*content.Document)}
	for _, d := range docs {
		r.docs[d.UID] = d
	}
	return r
}

func (r *fakeRepo) GetByUID(ctx context.Context, docType, uid string) (*content.Document, error) {
	r.calls.Add(1)
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	doc, ok := r.docs[uid]
	if !ok || docType != content.TypePublication {
		return nil, content.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeRepo) put(doc *content.Document) {
	r.mu.Lock()
	r.docs[doc.UID] = doc
	r.mu.Unlock()
}

func (r *fakeRepo) remove(uid string) {
	r.mu.Lock()
	delete(r.docs, uid)
	r.mu.Unlock()
}

func (r *fakeRepo) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func publication(uid, title string, blocks int) *content.Document {
	body := make([]richtext.Block, 0, blocks)
	for i := 1; i <= blocks; i++ {
		body = append(body, richtext.Block{Type: richtext.TypeParagraph, Text: fmt.Sprintf("block %d", i)})
	}
	return &content.Document{
		ID:                  "id-" + uid,
		UID:                 uid,
		Type:                content.TypePublication,
		Title:               []richtext.Block{{Type: richtext.TypeHeading1, Text: title}},
		Content:             body,
		LastPublicationDate: time.Date(2021, 3, 2, 18, 30, 0, 0, time.UTC),
	}
}

func newTestLoader(t *testing.T, repo content.Repository, opts LoaderOptions) *Loader {
	t.Helper()
	formatter, err := dates.NewFormatter("pt-BR", time.UTC)
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	return NewLoader(repo, formatter, richtext.NewSanitizer(true), opts)
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2021, 3, 2, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
