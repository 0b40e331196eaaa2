// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"How to Code", "how-to-code"},
		{"how-to-code", "how-to-code"},
		{"Como programar em Go?", "como-programar-em-go"},
		{"Introdução à programação", "introducao-a-programacao"},
		{"  spaced   out  ", "spaced-out"},
		{"snake_case_title", "snake-case-title"},
		{"--already--hyphenated--", "already-hyphenated"},
		{"Ig.news 2021", "ignews-2021"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"how-to-code", true},
		{"post-2021", true},
		{"go", true},
		{"", false},
		{"How-To-Code", false},
		{"how to code", false},
		{"-how", false},
		{"how-", false},
		{"how--code", false},
		{"../etc/passwd", false},
		{"post.md", false},
		{strings.Repeat("a", MaxSlugLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValidSlug(tt.input); got != tt.want {
				t.Errorf("IsValidSlug(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlugify_ProducesValidSlugs(t *testing.T) {
	for _, in := range []string{"How to Code", "Café com Leite", "a_b c-d"} {
		if got := Slugify(in); !IsValidSlug(got) {
			t.Errorf("Slugify(%q) = %q, which is not a valid slug", in, got)
		}
	}
}

func TestCanonicalSlug(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"how-to-code", "how-to-code", true},
		{"How-To-Code", "how-to-code", true},
		{" how-to-code ", "how-to-code", true},
		{"my_post", "my_post", true},
		{"release.v2", "release.v2", true},
		{"", "", false},
		{"   ", "", false},
		{"a/b", "", false},
		{strings.Repeat("a", MaxSlugLength+1), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := CanonicalSlug(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CanonicalSlug(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
