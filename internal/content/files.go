// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/olegiv/ignews-go/internal/dates"
	"github.com/olegiv/ignews-go/internal/richtext"
	"github.com/olegiv/ignews-go/internal/util"
)

const markdownExt = ".md"

// fileMatter is the front matter of a markdown document.
type fileMatter struct {
	Title     string `yaml:"title" toml:"title" json:"title"`
	Lang      string `yaml:"lang" toml:"lang" json:"lang"`
	Published string `yaml:"published" toml:"published" json:"published"`
	Updated   string `yaml:"updated" toml:"updated" json:"updated"`
	Draft     bool   `yaml:"draft" toml:"draft" json:"draft"`
}

// FileRepository serves documents from markdown files laid out as
// <type>/<uid>.md under its root.
type FileRepository struct {
	fsys fs.FS
	md   goldmark.Markdown
}

// NewFileRepository creates a repository reading from fsys.
func NewFileRepository(fsys fs.FS) *FileRepository {
	return &FileRepository{
		fsys: fsys,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// GetByUID reads and converts <docType>/<uid>.md. Drafts are reported as not found.
func (r *FileRepository) GetByUID(ctx context.Context, docType, uid string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !util.IsValidSlug(docType) || !util.IsValidSlug(uid) {
		return nil, ErrNotFound
	}

	name, err := r.resolve(docType, uid)
	if err != nil {
		return nil, err
	}
	raw, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	var matter fileMatter
	body, err := frontmatter.Parse(bytes.NewReader(raw), &matter)
	if err != nil {
		return nil, fmt.Errorf("parsing front matter of %s: %w", name, err)
	}
	if matter.Draft {
		return nil, ErrNotFound
	}

	doc := &Document{
		ID:      name,
		UID:     uid,
		Type:    docType,
		Lang:    matter.Lang,
		Content: r.convert(body),
	}

	switch {
	case matter.Title != "":
		doc.Title = []richtext.Block{{Type: richtext.TypeHeading1, Text: matter.Title}}
	case len(doc.Content) > 0 && doc.Content[0].Type == richtext.TypeHeading1:
		doc.Title = doc.Content[:1:1]
		doc.Content = doc.Content[1:]
	default:
		doc.Title = []richtext.Block{{Type: richtext.TypeHeading1, Text: titleFromUID(uid)}}
	}

	if doc.LastPublicationDate, err = r.updatedAt(name, matter.Updated); err != nil {
		return nil, err
	}
	if matter.Published != "" {
		if t, err := dates.Parse(matter.Published); err == nil {
			doc.FirstPublicationDate = t
		}
	}

	return doc, nil
}

// UIDs lists the UIDs of docType, sorted. File names are slugified, so
// "How to Code.md" is listed as how-to-code.
func (r *FileRepository) UIDs(docType string) ([]string, error) {
	entries, err := fs.ReadDir(r.fsys, docType)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", docType, err)
	}

	seen := make(map[string]bool, len(entries))
	var uids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), markdownExt) {
			continue
		}
		uid := util.Slugify(strings.TrimSuffix(e.Name(), markdownExt))
		if uid != "" && !seen[uid] {
			seen[uid] = true
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	return uids, nil
}

// resolve finds the file of uid. Files named in UID form are read directly;
// others, such as "How to Code.md", match when their slugified name equals uid.
func (r *FileRepository) resolve(docType, uid string) (string, error) {
	name := path.Join(docType, uid+markdownExt)
	if _, err := fs.Stat(r.fsys, name); err == nil {
		return name, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}

	entries, err := fs.ReadDir(r.fsys, docType)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("listing %s: %w", docType, err)
	}
	for _, e := range entries {
		stem, ok := strings.CutSuffix(e.Name(), markdownExt)
		if !e.IsDir() && ok && util.Slugify(stem) == uid {
			return path.Join(docType, e.Name()), nil
		}
	}
	return "", ErrNotFound
}

// updatedAt parses the front matter date, falling back to the file's mtime.
func (r *FileRepository) updatedAt(name, value string) (time.Time, error) {
	if value != "" {
		t, err := dates.Parse(value)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: updated: %w", name, err)
		}
		return t, nil
	}
	info, err := fs.Stat(r.fsys, name)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", name, err)
	}
	return info.ModTime().UTC(), nil
}

func titleFromUID(uid string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(uid, "-", " "))
}

// convert parses markdown and maps its top-level nodes to rich-text blocks.
func (r *FileRepository) convert(src []byte) []richtext.Block {
	doc := r.md.Parser().Parse(text.NewReader(src))

	var blocks []richtext.Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = append(blocks, convertBlock(n, src)...)
	}
	return blocks
}

func convertBlock(n ast.Node, src []byte) []richtext.Block {
	switch node := n.(type) {
	case *ast.Heading:
		level := min(max(node.Level, 1), 6)
		return []richtext.Block{inlineBlock(fmt.Sprintf("heading%d", level), node, src)}

	case *ast.Paragraph, *ast.TextBlock:
		if img, ok := soleImage(node); ok {
			alt := collectInline(img, src)
			return []richtext.Block{{Type: richtext.TypeImage, URL: string(img.Destination), Alt: alt.text.String()}}
		}
		return []richtext.Block{inlineBlock(richtext.TypeParagraph, node, src)}

	case *ast.List:
		itemType := richtext.TypeListItem
		if node.IsOrdered() {
			itemType = richtext.TypeOListItem
		}
		var blocks []richtext.Block
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			blocks = append(blocks, listItemBlocks(itemType, item, src)...)
		}
		return blocks

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var b strings.Builder
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		return []richtext.Block{{Type: richtext.TypePreformatted, Text: strings.TrimRight(b.String(), "\n")}}

	case *ast.Blockquote:
		var blocks []richtext.Block
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			for _, b := range convertBlock(c, src) {
				if b.Type == richtext.TypeParagraph {
					b.Label = "blockquote"
				}
				blocks = append(blocks, b)
			}
		}
		return blocks
	}

	// Thematic breaks, raw HTML and tables have no rich-text equivalent.
	return nil
}

// listItemBlocks returns the item's text as one block followed by the blocks
// of any nested lists.
func listItemBlocks(itemType string, item ast.Node, src []byte) []richtext.Block {
	ib := &inlineBuilder{src: src}
	var nested []richtext.Block
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			if ib.units > 0 {
				ib.write("\n")
			}
			ib.walk(c)
		default:
			nested = append(nested, convertBlock(c, src)...)
		}
	}
	return append([]richtext.Block{ib.block(itemType)}, nested...)
}

func soleImage(n ast.Node) (*ast.Image, bool) {
	if n.ChildCount() != 1 {
		return nil, false
	}
	img, ok := n.FirstChild().(*ast.Image)
	return img, ok
}

func inlineBlock(blockType string, n ast.Node, src []byte) richtext.Block {
	return collectInline(n, src).block(blockType)
}

func collectInline(n ast.Node, src []byte) *inlineBuilder {
	ib := &inlineBuilder{src: src}
	ib.walk(n)
	return ib
}

// inlineBuilder flattens inline nodes into text plus spans with UTF-16 offsets.
type inlineBuilder struct {
	src   []byte
	text  strings.Builder
	units int
	spans []richtext.Span
}

func (ib *inlineBuilder) block(blockType string) richtext.Block {
	return richtext.Block{Type: blockType, Text: ib.text.String(), Spans: ib.spans}
}

func (ib *inlineBuilder) write(s string) {
	ib.text.WriteString(s)
	ib.units += len(utf16.Encode([]rune(s)))
}

func (ib *inlineBuilder) walk(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			ib.write(string(node.Segment.Value(ib.src)))
			switch {
			case node.HardLineBreak():
				ib.write("\n")
			case node.SoftLineBreak():
				ib.write(" ")
			}
		case *ast.String:
			ib.write(string(node.Value))
		case *ast.CodeSpan:
			ib.wrap(node, richtext.Span{Type: richtext.SpanLabel, Data: &richtext.SpanData{Label: "codespan"}})
		case *ast.Emphasis:
			spanType := richtext.SpanEm
			if node.Level >= 2 {
				spanType = richtext.SpanStrong
			}
			ib.wrap(node, richtext.Span{Type: spanType})
		case *ast.Link:
			ib.wrap(node, hyperlink(string(node.Destination)))
		case *ast.AutoLink:
			start := ib.units
			ib.write(string(node.Label(ib.src)))
			ib.add(start, hyperlink(string(node.URL(ib.src))))
		case *ast.RawHTML:
			// dropped
		default:
			ib.walk(c)
		}
	}
}

func (ib *inlineBuilder) wrap(n ast.Node, span richtext.Span) {
	start := ib.units
	ib.walk(n)
	ib.add(start, span)
}

func (ib *inlineBuilder) add(start int, span richtext.Span) {
	if ib.units <= start {
		return
	}
	span.Start, span.End = start, ib.units
	ib.spans = append(ib.spans, span)
}

// hyperlink maps a markdown destination to a hyperlink span. Links of the
// form /posts/<uid> become document links.
func hyperlink(dest string) richtext.Span {
	link := richtext.Link{LinkType: richtext.LinkWeb, URL: dest}
	if uid, ok := strings.CutPrefix(dest, "/posts/"); ok && util.IsValidSlug(uid) {
		link = richtext.Link{LinkType: richtext.LinkDocument, UID: uid, Type: TypePublication}
	}
	return richtext.Span{Type: richtext.SpanHyperlink, Data: &richtext.SpanData{Link: link}}
}
