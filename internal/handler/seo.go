// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/ignews-go/internal/seo"
)

// SlugLister lists the slugs of known previews.
type SlugLister interface {
	PreviewSlugs() []string
}

// SEOHandler serves robots.txt and the sitemap.
type SEOHandler struct {
	siteURL     string
	disallowAll bool
	slugs       SlugLister
	logger      *slog.Logger
}

// NewSEOHandler creates an SEO handler. disallowAll blocks every crawler,
// for development and staging.
func NewSEOHandler(siteURL string, disallowAll bool, slugs SlugLister, logger *slog.Logger) *SEOHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SEOHandler{siteURL: siteURL, disallowAll: disallowAll, slugs: slugs, logger: logger}
}

// Robots handles GET /robots.txt.
func (h *SEOHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(seo.BuildRobots(seo.RobotsConfig{
		SiteURL:     h.siteURL,
		DisallowAll: h.disallowAll,
	})))
}

// Sitemap handles GET /sitemap.xml.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, _ *http.Request) {
	out, err := seo.GenerateSitemap(h.siteURL, h.slugs.PreviewSlugs())
	if err != nil {
		h.logger.Error("generating sitemap", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(out)
}
