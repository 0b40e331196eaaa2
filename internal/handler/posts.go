// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ignews-go/internal/content"
	"github.com/olegiv/ignews-go/internal/preview"
	"github.com/olegiv/ignews-go/internal/render"
	"github.com/olegiv/ignews-go/internal/subscription"
	"github.com/olegiv/ignews-go/internal/util"
)

// PageStore returns generated pages.
type PageStore interface {
	Preview(ctx context.Context, slug string) (*preview.Post, error)
	Article(ctx context.Context, slug string) (*preview.Post, error)
}

// SessionSource resolves and watches the visitor's session.
type SessionSource interface {
	Session(r *http.Request) (*subscription.Session, error)
	Watch(r *http.Request) *subscription.Listener
}

// PostsHandler serves the home page, post previews and full articles.
type PostsHandler struct {
	renderer  *render.Renderer
	pages     PageStore
	sessions  SessionSource
	logger    *slog.Logger
	keepAlive time.Duration
}

// NewPostsHandler creates a posts handler.
func NewPostsHandler(renderer *render.Renderer, pages PageStore, sessions SessionSource, logger *slog.Logger) *PostsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostsHandler{
		renderer:  renderer,
		pages:     pages,
		sessions:  sessions,
		logger:    logger,
		keepAlive: 25 * time.Second,
	}
}

// previewPage is the data of the preview template.
type previewPage struct {
	Post *preview.Post
	// EventsURL is empty for anonymous visitors.
	EventsURL string
}

// articlePage is the data of the post template.
type articlePage struct {
	Post *preview.Post
}

type errorPage struct {
	Status  int
	Message string
}

// Home handles GET /.
func (h *PostsHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, templateHome, render.TemplateData{Title: "Home"})
}

// Preview handles GET /posts/preview/{slug}. Visitors who already hold an
// active subscription are sent to the full article.
func (h *PostsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	slug, ok := h.canonicalSlug(w, r, previewPath)
	if !ok {
		return
	}

	sess := h.session(r)
	if subscription.HasActiveSubscription(sess) {
		http.Redirect(w, r, subscription.ArticlePath(slug), http.StatusTemporaryRedirect)
		return
	}

	post, err := h.pages.Preview(r.Context(), slug)
	if err != nil {
		h.pageError(w, r, err, "slug", slug)
		return
	}

	data := previewPage{Post: post}
	if sess != nil && sess.UserID != "" {
		data.EventsURL = previewEventsPath(slug)
	}

	w.Header().Set("Cache-Control", "private, no-cache")
	h.render(w, r, http.StatusOK, templatePreview, render.TemplateData{
		Title: post.Title,
		Data:  data,
	})
}

// Post handles GET /posts/{slug}. Visitors without an active subscription
// are sent to the preview.
func (h *PostsHandler) Post(w http.ResponseWriter, r *http.Request) {
	slug, ok := h.canonicalSlug(w, r, subscription.ArticlePath)
	if !ok {
		return
	}

	if !subscription.HasActiveSubscription(h.session(r)) {
		http.Redirect(w, r, previewPath(slug), http.StatusTemporaryRedirect)
		return
	}

	post, err := h.pages.Article(r.Context(), slug)
	if err != nil {
		h.pageError(w, r, err, "slug", slug)
		return
	}

	w.Header().Set("Cache-Control", "private, no-cache")
	h.render(w, r, http.StatusOK, templatePost, render.TemplateData{
		Title: post.Title,
		Data:  articlePage{Post: post},
	})
}

// NotFound renders the 404 page.
func (h *PostsHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, templateNotFound, render.TemplateData{Title: "Not found"})
}

// canonicalSlug reads the slug parameter. Unusable slugs get a 404 and
// slugs differing only in case or surrounding whitespace a permanent
// redirect to pathOf(canonical). Anything else is left to the repository.
func (h *PostsHandler) canonicalSlug(w http.ResponseWriter, r *http.Request, pathOf func(string) string) (string, bool) {
	raw := chi.URLParam(r, paramSlug)
	slug, ok := util.CanonicalSlug(raw)
	if !ok {
		h.NotFound(w, r)
		return "", false
	}
	if slug != raw {
		http.Redirect(w, r, pathOf(slug), http.StatusMovedPermanently)
		return "", false
	}
	return slug, true
}

// session returns the visitor's session, or nil when it cannot be resolved.
func (h *PostsHandler) session(r *http.Request) *subscription.Session {
	sess, err := h.sessions.Session(r)
	if err != nil {
		h.logger.Warn("resolving session", "error", err, "path", r.URL.Path)
		return nil
	}
	return sess
}

func (h *PostsHandler) pageError(w http.ResponseWriter, r *http.Request, err error, args ...any) {
	if errors.Is(err, content.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	h.logger.Error("loading page", append(args, "error", err)...)
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong while loading this post.")
}

func (h *PostsHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, templateError, render.TemplateData{
		Title: http.StatusText(status),
		Data:  errorPage{Status: status, Message: message},
	})
}

func (h *PostsHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data render.TemplateData) {
	if err := h.renderer.Render(w, status, name, data); err != nil {
		h.logger.Error("rendering template", "template", name, "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
