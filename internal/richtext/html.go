// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package richtext

import (
	"html"
	"sort"
	"strings"
	"unicode/utf16"
)

// LinkResolver turns a link into an href.
type LinkResolver func(Link) string

// DefaultLinkResolver resolves document links to their post path and every
// other link to its URL.
func DefaultLinkResolver(l Link) string {
	if l.LinkType == LinkDocument && l.UID != "" {
		return "/posts/" + l.UID
	}
	return l.URL
}

// AsText concatenates the text of every block, separated by sep.
func AsText(blocks []Block, sep string) string {
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		texts = append(texts, b.Text)
	}
	return strings.Join(texts, sep)
}

// AsHTML serializes blocks to HTML using DefaultLinkResolver.
func AsHTML(blocks []Block) string {
	return HTMLSerializer{}.Serialize(blocks)
}

// HTMLSerializer renders blocks to HTML. Text content is escaped; embed HTML
// is copied verbatim.
type HTMLSerializer struct {
	Resolve LinkResolver
}

// Serialize renders blocks, grouping consecutive list items into <ul>/<ol>.
func (s HTMLSerializer) Serialize(blocks []Block) string {
	if s.Resolve == nil {
		s.Resolve = DefaultLinkResolver
	}

	var b strings.Builder
	for i := 0; i < len(blocks); i++ {
		block := blocks[i]
		if block.Type == TypeListItem || block.Type == TypeOListItem {
			tag := "ul"
			if block.Type == TypeOListItem {
				tag = "ol"
			}
			b.WriteString("<" + tag + ">")
			for ; i < len(blocks) && blocks[i].Type == block.Type; i++ {
				s.writeTextBlock(&b, "li", blocks[i])
			}
			b.WriteString("</" + tag + ">")
			i--
			continue
		}
		s.writeBlock(&b, block)
	}
	return b.String()
}

func (s HTMLSerializer) writeBlock(b *strings.Builder, block Block) {
	switch block.Type {
	case TypeHeading1, TypeHeading2, TypeHeading3, TypeHeading4, TypeHeading5, TypeHeading6:
		s.writeTextBlock(b, "h"+block.Type[len(block.Type)-1:], block)
	case TypeParagraph:
		s.writeTextBlock(b, "p", block)
	case TypePreformatted:
		s.writeTextBlock(b, "pre", block)
	case TypeImage:
		s.writeImage(b, block)
	case TypeEmbed:
		writeEmbed(b, block)
	default:
		// Unknown block types still carry readable text.
		if block.Text != "" {
			s.writeTextBlock(b, "p", block)
		}
	}
}

func (s HTMLSerializer) writeTextBlock(b *strings.Builder, tag string, block Block) {
	b.WriteString("<" + tag)
	if block.Label != "" {
		b.WriteString(` class="` + html.EscapeString(block.Label) + `"`)
	}
	b.WriteString(">")
	b.WriteString(s.serializeSpans(block.Text, block.Spans))
	b.WriteString("</" + tag + ">")
}

func (s HTMLSerializer) writeImage(b *strings.Builder, block Block) {
	img := `<img src="` + html.EscapeString(block.URL) + `" alt="` + html.EscapeString(block.Alt) + `" />`
	if block.LinkTo != nil {
		if href := s.Resolve(*block.LinkTo); href != "" {
			img = `<a href="` + html.EscapeString(href) + `"` + targetAttr(block.LinkTo.Target) + `>` + img + `</a>`
		}
	}
	b.WriteString(`<p class="block-img">` + img + `</p>`)
}

func writeEmbed(b *strings.Builder, block Block) {
	if block.Oembed == nil {
		return
	}
	e := block.Oembed
	b.WriteString(`<div data-oembed="` + html.EscapeString(e.EmbedURL) +
		`" data-oembed-type="` + html.EscapeString(e.Type) +
		`" data-oembed-provider="` + html.EscapeString(e.ProviderName) + `">`)
	b.WriteString(e.HTML)
	b.WriteString(`</div>`)
}

func targetAttr(target string) string {
	if target == "" {
		return ""
	}
	return ` target="` + html.EscapeString(target) + `" rel="noopener"`
}

// serializeSpans renders text with its inline spans. Overlapping spans are
// split so that the produced tags nest properly.
func (s HTMLSerializer) serializeSpans(text string, spans []Span) string {
	units := utf16.Encode([]rune(text))

	valid := make([]Span, 0, len(spans))
	for _, sp := range spans {
		if sp.Start < 0 || sp.End > len(units) || sp.Start >= sp.End {
			continue
		}
		valid = append(valid, sp)
	}
	sortSpans(valid)

	var b strings.Builder
	s.renderRange(&b, units, 0, len(units), valid)
	return b.String()
}

func (s HTMLSerializer) renderRange(b *strings.Builder, units []uint16, from, to int, spans []Span) {
	cursor := from
	for len(spans) > 0 {
		cur := spans[0]
		var inner, outer []Span
		for _, o := range spans[1:] {
			switch {
			case o.Start >= cur.End:
				outer = append(outer, o)
			case o.End <= cur.End:
				inner = append(inner, o)
			default:
				left, right := o, o
				left.End = cur.End
				right.Start = cur.End
				inner = append(inner, left)
				outer = append(outer, right)
			}
		}

		writeText(b, units[cursor:cur.Start])
		open, closing := s.spanTags(cur)
		b.WriteString(open)
		s.renderRange(b, units, cur.Start, cur.End, inner)
		b.WriteString(closing)

		cursor = cur.End
		sortSpans(outer)
		spans = outer
	}
	writeText(b, units[cursor:to])
}

func (s HTMLSerializer) spanTags(sp Span) (string, string) {
	switch sp.Type {
	case SpanStrong:
		return "<strong>", "</strong>"
	case SpanEm:
		return "<em>", "</em>"
	case SpanLabel:
		label := ""
		if sp.Data != nil {
			label = sp.Data.Label
		}
		return `<span class="` + html.EscapeString(label) + `">`, "</span>"
	case SpanHyperlink:
		if sp.Data == nil {
			return "", ""
		}
		href := s.Resolve(sp.Data.Link)
		if href == "" {
			return "", ""
		}
		return `<a href="` + html.EscapeString(href) + `"` + targetAttr(sp.Data.Target) + `>`, "</a>"
	default:
		return "", ""
	}
}

func writeText(b *strings.Builder, units []uint16) {
	if len(units) == 0 {
		return
	}
	escaped := html.EscapeString(string(utf16.Decode(units)))
	b.WriteString(strings.ReplaceAll(escaped, "\n", "<br />"))
}

// sortSpans orders spans by start, longest first on ties, so an enclosing span
// is opened before the spans it contains.
func sortSpans(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
}
