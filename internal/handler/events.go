// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/olegiv/ignews-go/internal/metrics"
	"github.com/olegiv/ignews-go/internal/subscription"
)

// PreviewEvents handles GET /posts/preview/{slug}/events. It streams
// Server-Sent Events to an open preview and emits a single navigate event
// with the article path once the visitor's subscription becomes active.
// Anonymous visitors get 204, which stops EventSource reconnects.
func (h *PostsHandler) PreviewEvents(w http.ResponseWriter, r *http.Request) {
	slug, ok := h.canonicalSlug(w, r, previewEventsPath)
	if !ok {
		return
	}

	listener := h.sessions.Watch(r)
	if listener == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	defer listener.Close()

	metrics.GateStreams.Inc()
	defer metrics.GateStreams.Dec()

	initial := h.session(r)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	navigated := make(chan string, 1)
	gate := subscription.NewGate(slug, func(path string) {
		select {
		case navigated <- path:
		default:
		}
	})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = gate.Run(ctx, initial, listener.C)
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// The stream outlives the server write timeout.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	_, _ = fmt.Fprint(w, "retry: 5000\n\n")
	if err := rc.Flush(); err != nil {
		h.logger.Error("event stream not flushable", "error", err)
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case path := <-navigated:
			h.sendNavigate(w, rc, slug, listener.UserID, path)
			return
		case <-stopped:
			// The broker closed the listener; deliver a navigation that raced it.
			select {
			case path := <-navigated:
				h.sendNavigate(w, rc, slug, listener.UserID, path)
			default:
			}
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}

func (h *PostsHandler) sendNavigate(w http.ResponseWriter, rc *http.ResponseController, slug, userID, path string) {
	_, _ = fmt.Fprintf(w, "event: navigate\ndata: %s\n\n", path)
	_ = rc.Flush()
	h.logger.Info("subscription activated on preview", "slug", slug, "user_id", userID)
}
