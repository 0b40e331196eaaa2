// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides helpers for document UIDs as they appear in URLs.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRuns   = regexp.MustCompile(`-{2,}`)
)

// MaxSlugLength bounds the length of a UID accepted from a URL.
const MaxSlugLength = 200

// Slugify folds s into the strict UID form: accents removed, lowercase,
// whitespace and underscores turned into single hyphens.
func Slugify(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(fold, s)
	if err != nil {
		out = s
	}

	out = strings.ToLower(strings.TrimSpace(out))
	out = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' {
			return '-'
		}
		return r
	}, out)
	out = nonSlugChars.ReplaceAllString(out, "")
	out = hyphenRuns.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}

// CanonicalSlug returns the form of a URL slug that is looked up in the
// content repository: surrounding whitespace trimmed and lowercased. Every
// other character is kept, since repository UIDs may contain underscores or
// dots. ok is false for empty or overlong slugs and slugs containing a slash.
func CanonicalSlug(raw string) (slug string, ok bool) {
	slug = strings.ToLower(strings.TrimSpace(raw))
	if slug == "" || len(slug) > MaxSlugLength || strings.ContainsRune(slug, '/') {
		return "", false
	}
	return slug, true
}

// IsValidSlug reports whether s is in the strict UID form used for file names.
func IsValidSlug(s string) bool {
	if s == "" || len(s) > MaxSlugLength {
		return false
	}
	if s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
