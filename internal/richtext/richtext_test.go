// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package richtext

import (
	"encoding/json"
	"strings"
	"testing"
)

func paragraphs(texts ...string) []Block {
	blocks := make([]Block, 0, len(texts))
	for _, t := range texts {
		blocks = append(blocks, Block{Type: TypeParagraph, Text: t})
	}
	return blocks
}

func TestAsText(t *testing.T) {
	tests := []struct {
		name   string
		blocks []Block
		want   string
	}{
		{"empty", nil, ""},
		{"single heading", []Block{{Type: TypeHeading1, Text: "How to Code"}}, "How to Code"},
		{"multiple blocks", []Block{{Type: TypeHeading1, Text: "How to"}, {Type: TypeParagraph, Text: "Code"}}, "How to Code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AsText(tt.blocks, " "); got != tt.want {
				t.Errorf("AsText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirst(t *testing.T) {
	six := paragraphs("1", "2", "3", "4", "5", "6")

	tests := []struct {
		name   string
		blocks []Block
		n      int
		want   int
	}{
		{"more than n", six, 4, 4},
		{"exactly n", six[:4], 4, 4},
		{"fewer than n", six[:2], 4, 2},
		{"empty", nil, 4, 0},
		{"negative n", six, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := First(tt.blocks, tt.n)
			if len(got) != tt.want {
				t.Fatalf("len(First()) = %d, want %d", len(got), tt.want)
			}
			for i := range got {
				if got[i].Text != tt.blocks[i].Text {
					t.Errorf("block %d = %q, want %q", i, got[i].Text, tt.blocks[i].Text)
				}
			}
		})
	}
}

func TestFirst_DoesNotMutateInput(t *testing.T) {
	blocks := paragraphs("1", "2", "3", "4", "5", "6")

	got := First(blocks, 4)
	got[0].Text = "changed"

	if len(blocks) != 6 {
		t.Fatalf("input length changed to %d", len(blocks))
	}
	if blocks[0].Text != "1" {
		t.Errorf("input block mutated: %q", blocks[0].Text)
	}
}

func TestAsHTML_Blocks(t *testing.T) {
	tests := []struct {
		name   string
		blocks []Block
		want   string
	}{
		{
			name:   "paragraph",
			blocks: paragraphs("Hello"),
			want:   "<p>Hello</p>",
		},
		{
			name:   "headings",
			blocks: []Block{{Type: TypeHeading2, Text: "Two"}, {Type: TypeHeading6, Text: "Six"}},
			want:   "<h2>Two</h2><h6>Six</h6>",
		},
		{
			name:   "preformatted with newline",
			blocks: []Block{{Type: TypePreformatted, Text: "a\nb"}},
			want:   "<pre>a<br />b</pre>",
		},
		{
			name: "grouped list items",
			blocks: []Block{
				{Type: TypeListItem, Text: "one"},
				{Type: TypeListItem, Text: "two"},
				{Type: TypeOListItem, Text: "first"},
				{Type: TypeParagraph, Text: "after"},
			},
			want: "<ul><li>one</li><li>two</li></ul><ol><li>first</li></ol><p>after</p>",
		},
		{
			name:   "escaped text",
			blocks: paragraphs(`<script>alert("x")</script> & more`),
			want:   "<p>&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; more</p>",
		},
		{
			name:   "block label",
			blocks: []Block{{Type: TypeParagraph, Text: "note", Label: "callout"}},
			want:   `<p class="callout">note</p>`,
		},
		{
			name:   "image",
			blocks: []Block{{Type: TypeImage, URL: "https://images.prismic.io/a.png", Alt: "diagram"}},
			want:   `<p class="block-img"><img src="https://images.prismic.io/a.png" alt="diagram" /></p>`,
		},
		{
			name: "linked image",
			blocks: []Block{{
				Type:   TypeImage,
				URL:    "https://images.prismic.io/a.png",
				LinkTo: &Link{LinkType: LinkWeb, URL: "https://example.com", Target: "_blank"},
			}},
			want: `<p class="block-img"><a href="https://example.com" target="_blank" rel="noopener"><img src="https://images.prismic.io/a.png" alt="" /></a></p>`,
		},
		{
			name: "embed",
			blocks: []Block{{
				Type:   TypeEmbed,
				Oembed: &Embed{EmbedURL: "https://youtu.be/x", Type: "video", ProviderName: "YouTube", HTML: "<iframe></iframe>"},
			}},
			want: `<div data-oembed="https://youtu.be/x" data-oembed-type="video" data-oembed-provider="YouTube"><iframe></iframe></div>`,
		},
		{
			name:   "unknown type with text",
			blocks: []Block{{Type: "custom", Text: "fallback"}},
			want:   "<p>fallback</p>",
		},
		{
			name:   "unknown type without text",
			blocks: []Block{{Type: "custom"}},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AsHTML(tt.blocks); got != tt.want {
				t.Errorf("AsHTML() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestAsHTML_Spans(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		spans []Span
		want  string
	}{
		{
			name:  "strong",
			text:  "Hello world",
			spans: []Span{{Start: 6, End: 11, Type: SpanStrong}},
			want:  "<p>Hello <strong>world</strong></p>",
		},
		{
			name: "nested",
			text: "Hello world",
			spans: []Span{
				{Start: 6, End: 11, Type: SpanEm},
				{Start: 0, End: 11, Type: SpanStrong},
			},
			want: "<p><strong>Hello <em>world</em></strong></p>",
		},
		{
			name: "overlapping spans are split",
			text: "abcdef",
			spans: []Span{
				{Start: 0, End: 4, Type: SpanStrong},
				{Start: 2, End: 6, Type: SpanEm},
			},
			want: "<p><strong>ab<em>cd</em></strong><em>ef</em></p>",
		},
		{
			name: "web hyperlink",
			text: "read the docs",
			spans: []Span{{Start: 9, End: 13, Type: SpanHyperlink, Data: &SpanData{
				Link: Link{LinkType: LinkWeb, URL: "https://go.dev/doc", Target: "_blank"},
			}}},
			want: `<p>read the <a href="https://go.dev/doc" target="_blank" rel="noopener">docs</a></p>`,
		},
		{
			name: "document hyperlink",
			text: "next post",
			spans: []Span{{Start: 0, End: 9, Type: SpanHyperlink, Data: &SpanData{
				Link: Link{LinkType: LinkDocument, UID: "why-go", Type: "publication"},
			}}},
			want: `<p><a href="/posts/why-go">next post</a></p>`,
		},
		{
			name:  "label",
			text:  "x := 1",
			spans: []Span{{Start: 0, End: 6, Type: SpanLabel, Data: &SpanData{Label: "codespan"}}},
			want:  `<p><span class="codespan">x := 1</span></p>`,
		},
		{
			name:  "utf16 offsets",
			text:  "😀 café",
			spans: []Span{{Start: 3, End: 7, Type: SpanStrong}},
			want:  "<p>😀 <strong>café</strong></p>",
		},
		{
			name: "invalid spans ignored",
			text: "abc",
			spans: []Span{
				{Start: 2, End: 10, Type: SpanStrong},
				{Start: 2, End: 2, Type: SpanEm},
				{Start: -1, End: 1, Type: SpanEm},
			},
			want: "<p>abc</p>",
		},
		{
			name:  "unknown span renders text",
			text:  "abc",
			spans: []Span{{Start: 0, End: 3, Type: "mystery"}},
			want:  "<p>abc</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AsHTML([]Block{{Type: TypeParagraph, Text: tt.text, Spans: tt.spans}})
			if got != tt.want {
				t.Errorf("AsHTML() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestHTMLSerializer_CustomResolver(t *testing.T) {
	s := HTMLSerializer{Resolve: func(l Link) string { return "/articles/" + l.UID }}
	blocks := []Block{{
		Type:  TypeParagraph,
		Text:  "see",
		Spans: []Span{{Start: 0, End: 3, Type: SpanHyperlink, Data: &SpanData{Link: Link{LinkType: LinkDocument, UID: "a"}}}},
	}}

	want := `<p><a href="/articles/a">see</a></p>`
	if got := s.Serialize(blocks); got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}

func TestBlock_UnmarshalRepositoryJSON(t *testing.T) {
	raw := `[
		{"type":"paragraph","text":"Go is fun","spans":[{"start":0,"end":2,"type":"hyperlink","data":{"link_type":"Web","url":"https://go.dev"}}]},
		{"type":"image","url":"https://images.prismic.io/x.png","alt":"x","dimensions":{"width":10,"height":10}}
	]`

	var blocks []Block
	if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	got := AsHTML(blocks)
	if !strings.Contains(got, `<a href="https://go.dev">Go</a> is fun`) {
		t.Errorf("hyperlink not rendered: %s", got)
	}
	if !strings.Contains(got, `<img src="https://images.prismic.io/x.png" alt="x" />`) {
		t.Errorf("image not rendered: %s", got)
	}
}

func TestSanitizer(t *testing.T) {
	input := `<p class="block-img">ok <strong>bold</strong></p><script>alert(1)</script><p onclick="x()">click</p>`

	t.Run("enabled", func(t *testing.T) {
		s := NewSanitizer(true)
		got := s.Sanitize(input)

		if strings.Contains(got, "<script") || strings.Contains(got, "onclick") {
			t.Errorf("unsafe markup survived: %s", got)
		}
		if !strings.Contains(got, "<strong>bold</strong>") {
			t.Errorf("safe markup removed: %s", got)
		}
		if !strings.Contains(got, `class="block-img"`) {
			t.Errorf("block class removed: %s", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		s := NewSanitizer(false)
		if s.Enabled() {
			t.Error("Enabled() = true, want false")
		}
		if got := s.Sanitize(input); got != input {
			t.Errorf("disabled sanitizer changed input: %s", got)
		}
	})

	t.Run("nil", func(t *testing.T) {
		var s *Sanitizer
		if got := s.Sanitize(input); got != input {
			t.Errorf("nil sanitizer changed input: %s", got)
		}
	})
}
