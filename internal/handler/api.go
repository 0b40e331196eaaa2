// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ignews-go/internal/content"
	"github.com/olegiv/ignews-go/internal/util"
)

// APIHandler serves the JSON API used by client-side code.
type APIHandler struct {
	pages    PageStore
	sessions SessionSource
	logger   *slog.Logger
}

// NewAPIHandler creates an API handler.
func NewAPIHandler(pages PageStore, sessions SessionSource, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{pages: pages, sessions: sessions, logger: logger}
}

// Session handles GET /api/auth/session.
func (h *APIHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Session(r)
	if err != nil {
		h.logger.Error("resolving session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, sess)
}

// Preview handles GET /api/v1/previews/{slug}.
func (h *APIHandler) Preview(w http.ResponseWriter, r *http.Request) {
	slug, ok := util.CanonicalSlug(chi.URLParam(r, paramSlug))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Post not found")
		return
	}

	post, err := h.pages.Preview(r.Context(), slug)
	if errors.Is(err, content.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		h.logger.Error("loading preview", "slug", slug, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to load preview")
		return
	}
	writeJSON(w, http.StatusOK, post)
}
