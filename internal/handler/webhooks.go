// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ignews-go/internal/subscription"
	"github.com/olegiv/ignews-go/internal/util"
)

// maxWebhookBody limits webhook request bodies.
const maxWebhookBody = 1 << 20

// SubscriptionUpdater applies billing updates.
type SubscriptionUpdater interface {
	Apply(ctx context.Context, u subscription.Update) (bool, error)
}

// Invalidator drops generated pages of a slug.
type Invalidator interface {
	Invalidate(ctx context.Context, slug string) error
}

// WebhooksHandler receives calls from the billing provider and the content
// repository. Every call must carry the shared secret as a Bearer token.
type WebhooksHandler struct {
	secret        string
	subscriptions SubscriptionUpdater
	pages         Invalidator
	logger        *slog.Logger
}

// NewWebhooksHandler creates a webhooks handler. An empty secret disables
// every webhook endpoint.
func NewWebhooksHandler(secret string, subscriptions SubscriptionUpdater, pages Invalidator, logger *slog.Logger) *WebhooksHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhooksHandler{secret: secret, subscriptions: subscriptions, pages: pages, logger: logger}
}

// subscriptionEvent is the body of POST /api/webhooks/subscriptions.
type subscriptionEvent struct {
	UserID         string     `json:"user_id"`
	SubscriptionID string     `json:"subscription_id"`
	Status         string     `json:"status"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// Subscription handles POST /api/webhooks/subscriptions.
func (h *WebhooksHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var ev subscriptionEvent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err := dec.Decode(&ev); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(ev.UserID) == "" {
		writeJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	status, err := subscription.ParseStatus(ev.Status)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	u := subscription.Update{
		UserID:     strings.TrimSpace(ev.UserID),
		ExternalID: ev.SubscriptionID,
		Status:     status,
	}
	if ev.UpdatedAt != nil {
		u.At = *ev.UpdatedAt
	}

	applied, err := h.subscriptions.Apply(r.Context(), u)
	if err != nil {
		h.logger.Error("applying subscription update", "user_id", u.UserID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to apply update")
		return
	}
	writeJSONSuccess(w, map[string]any{"applied": applied})
}

// Revalidate handles POST /api/revalidate/{slug}.
func (h *WebhooksHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	slug, ok := util.CanonicalSlug(chi.URLParam(r, paramSlug))
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "Invalid slug")
		return
	}
	if err := h.pages.Invalidate(r.Context(), slug); err != nil {
		h.logger.Error("invalidating pages", "slug", slug, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to revalidate")
		return
	}

	h.logger.Info("pages invalidated", "slug", slug)
	writeJSONSuccess(w, map[string]any{"revalidated": slug})
}

// authorize checks the Bearer token and writes the error response on failure.
func (h *WebhooksHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.secret == "" {
		writeJSONError(w, http.StatusNotFound, "Webhooks are disabled")
		return false
	}

	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		writeJSONError(w, http.StatusUnauthorized, "Invalid credentials")
		return false
	}
	return true
}
