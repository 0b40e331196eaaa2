// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"io/fs"
	"net/http"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ignews-go/internal/content"
	"github.com/olegiv/ignews-go/internal/preview"
	"github.com/olegiv/ignews-go/internal/render"
	"github.com/olegiv/ignews-go/internal/subscription"
	"github.com/olegiv/ignews-go/web"
)

// fakePages is an in-memory PageStore and Invalidator.
type fakePages struct {
	mu          sync.Mutex
	posts       map[string]*preview.Post
	err         error
	invalidated []string
}

func newFakePages(posts ...*preview.Post) *fakePages {
	p := &fakePages{posts: make(map[string]*preview.Post)}
	for _, post := range posts {
		p.posts[post.Slug] = post
	}
	return p
}

func (p *fakePages) get(slug string) (*preview.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	post, ok := p.posts[slug]
	if !ok {
		return nil, content.ErrNotFound
	}
	return post, nil
}

func (p *fakePages) Preview(_ context.Context, slug string) (*preview.Post, error) {
	return p.get(slug)
}

func (p *fakePages) Article(_ context.Context, slug string) (*preview.Post, error) {
	post, err := p.get(slug)
	if err != nil {
		return nil, err
	}
	full := *post
	full.Content += "<p>The rest of the article.</p>"
	return &full, nil
}

func (p *fakePages) Invalidate(_ context.Context, slug string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.invalidated = append(p.invalidated, slug)
	return nil
}

// fakeSessions returns a fixed session and watches it through a real broker.
type fakeSessions struct {
	session *subscription.Session
	err     error
	broker  *subscription.Broker
}

func (s *fakeSessions) Session(*http.Request) (*subscription.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.session
	return &cp, nil
}

func (s *fakeSessions) Watch(*http.Request) *subscription.Listener {
	if s.broker == nil || s.session == nil || s.session.UserID == "" {
		return nil
	}
	return s.broker.Subscribe(s.session.UserID)
}

func anonymous() *fakeSessions {
	return &fakeSessions{session: &subscription.Session{}}
}

func signedIn(userID string, active bool) *fakeSessions {
	return &fakeSessions{
		session: &subscription.Session{UserID: userID, ActiveSubscription: active},
		broker:  subscription.NewBroker(),
	}
}

func howToCode() *preview.Post {
	return &preview.Post{
		Slug:      "how-to-code",
		Title:     "How to Code",
		Content:   "<p>Learn <strong>Go</strong>.</p>",
		UpdatedAt: "02 de março de 2021",
	}
}

func newTestRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	sub, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)
	r, err := render.New(render.Config{TemplatesFS: sub, SiteName: "Ig.news"})
	require.NoError(t, err)
	return r
}

// newPostsRouter mounts the page routes the way the server does.
func newPostsRouter(h *PostsHandler) http.Handler {
	r := chi.NewRouter()
	r.NotFound(h.NotFound)
	r.Get(RouteRoot, h.Home)
	r.Get(RoutePreview, h.Preview)
	r.Get(RoutePreviewEvents, h.PreviewEvents)
	r.Get(RoutePost, h.Post)
	return r
}
