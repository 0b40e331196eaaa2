// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers of the Ig.news server.
package handler

import "net/url"

// Route patterns.
const (
	RouteRoot          = "/"
	RoutePreview       = "/posts/preview/{slug}"
	RoutePreviewEvents = "/posts/preview/{slug}/events"
	RoutePost          = "/posts/{slug}"

	RouteAPISession       = "/api/auth/session"
	RouteAPIPreview       = "/api/v1/previews/{slug}"
	RouteWebhookSubscribe = "/api/webhooks/subscriptions"
	RouteRevalidate       = "/api/revalidate/{slug}"

	RouteHealth      = "/health"
	RouteHealthLive  = "/health/live"
	RouteHealthReady = "/health/ready"
)

// URL parameter names.
const paramSlug = "slug"

// Page template names.
const (
	templateHome     = "home"
	templatePreview  = "preview"
	templatePost     = "post"
	templateNotFound = "404"
	templateError    = "error"
)

// previewPath returns the preview path of slug.
func previewPath(slug string) string {
	return "/posts/preview/" + url.PathEscape(slug)
}

// previewEventsPath returns the session event stream path of slug.
func previewEventsPath(slug string) string {
	return previewPath(slug) + "/events"
}
