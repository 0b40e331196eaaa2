// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package richtext

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer is the boundary between repository-rendered HTML and the page.
// A disabled Sanitizer trusts its input as already sanitized upstream.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a Sanitizer built on bluemonday's UGC policy, extended
// with the class and data-oembed attributes the serializer emits.
func NewSanitizer(enabled bool) *Sanitizer {
	if !enabled {
		return &Sanitizer{}
	}

	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)).OnElements("p", "span", "pre", "h1", "h2", "h3", "h4", "h5", "h6", "li")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowDataAttributes()
	return &Sanitizer{policy: p}
}

// Enabled reports whether the sanitizer filters its input.
func (s *Sanitizer) Enabled() bool {
	return s != nil && s.policy != nil
}

// Sanitize filters html through the policy, or returns it unchanged when disabled.
func (s *Sanitizer) Sanitize(html string) string {
	if !s.Enabled() {
		return html
	}
	return s.policy.Sanitize(html)
}
