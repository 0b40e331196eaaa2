// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package richtext models structured rich-text blocks as returned by headless
// content repositories and serializes them to plain text or HTML.
package richtext

// Block types.
const (
	TypeHeading1     = "heading1"
	TypeHeading2     = "heading2"
	TypeHeading3     = "heading3"
	TypeHeading4     = "heading4"
	TypeHeading5     = "heading5"
	TypeHeading6     = "heading6"
	TypeParagraph    = "paragraph"
	TypePreformatted = "preformatted"
	TypeListItem     = "list-item"
	TypeOListItem    = "o-list-item"
	TypeImage        = "image"
	TypeEmbed        = "embed"
)

// Span types.
const (
	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
	SpanLabel     = "label"
)

// Link types used by hyperlink spans and image links.
const (
	LinkWeb      = "Web"
	LinkDocument = "Document"
	LinkMedia    = "Media"
)

// Block is one element of a rich-text field: a paragraph, heading, list item,
// image or embed.
type Block struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Spans []Span `json:"spans,omitempty"`

	// Label is an optional custom style applied to the whole block.
	Label string `json:"label,omitempty"`

	// Image fields
	URL    string `json:"url,omitempty"`
	Alt    string `json:"alt,omitempty"`
	LinkTo *Link  `json:"linkTo,omitempty"`

	// Embed fields
	Oembed *Embed `json:"oembed,omitempty"`
}

// Span marks a range of a block's text. Start and End are offsets in UTF-16
// code units, End exclusive.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

// SpanData carries the link target of hyperlink spans or the name of label spans.
type SpanData struct {
	Link
	Label string `json:"label,omitempty"`
}

// Link is a reference to a web URL, a media file or another document.
type Link struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	UID      string `json:"uid,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Embed is oEmbed data attached to an embed block.
type Embed struct {
	EmbedURL     string `json:"embed_url"`
	Type         string `json:"type"`
	ProviderName string `json:"provider_name,omitempty"`
	HTML         string `json:"html,omitempty"`
}

// First returns a copy of at most n leading blocks. The input is never modified.
func First(blocks []Block, n int) []Block {
	if n < 0 {
		n = 0
	}
	if n > len(blocks) {
		n = len(blocks)
	}
	out := make([]Block, n)
	copy(out, blocks[:n])
	return out
}
