package convert

import (
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/agentstation/notesync/pkg/notion"
)

// spanStyle carries the inline annotations accumulated while descending
// through emphasis and link nodes.
type spanStyle struct {
	bold          bool
	italic        bool
	strikethrough bool
	code          bool
	link          string
}

func (s spanStyle) annotations() *notion.Annotations {
	if !s.bold && !s.italic && !s.strikethrough && !s.code {
		return nil
	}
	return &notion.Annotations{
		Bold:          s.bold,
		Italic:        s.italic,
		Strikethrough: s.strikethrough,
		Code:          s.code,
	}
}

// inlineSpans converts a node's inline children into rich text spans.
func inlineSpans(node ast.Node, src []byte, style spanStyle) []notion.RichText {
	var spans []notion.RichText
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		spans = append(spans, inlineSpan(child, src, style)...)
	}
	return spans
}

func inlineSpan(node ast.Node, src []byte, style spanStyle) []notion.RichText {
	switch n := node.(type) {
	case *ast.Text:
		content := string(n.Segment.Value(src))
		if n.SoftLineBreak() {
			content += " "
		} else if n.HardLineBreak() {
			content += "\n"
		}
		return styledSpans(content, style)
	case *ast.String:
		return styledSpans(string(n.Value), style)
	case *ast.CodeSpan:
		code := style
		code.code = true
		return styledSpans(flattenText(n, src), code)
	case *ast.Emphasis:
		emphasized := style
		if n.Level >= 2 {
			emphasized.bold = true
		} else {
			emphasized.italic = true
		}
		return inlineSpans(n, src, emphasized)
	case *east.Strikethrough:
		struck := style
		struck.strikethrough = true
		return inlineSpans(n, src, struck)
	case *ast.Link:
		linked := style
		linked.link = string(n.Destination)
		return inlineSpans(n, src, linked)
	case *ast.AutoLink:
		url := string(n.URL(src))
		linked := style
		linked.link = url
		return styledSpans(url, linked)
	case *ast.Image:
		// Images become their alt text; block-level image support is out
		// of scope and the text must not be dropped.
		return inlineSpans(n, src, style)
	case *ast.RawHTML:
		return nil
	default:
		if flat := flattenText(n, src); flat != "" {
			return styledSpans(flat, style)
		}
		return nil
	}
}

// styledSpans builds rich text spans for content, splitting at the API's
// per-span length bound.
func styledSpans(content string, style spanStyle) []notion.RichText {
	if content == "" {
		return nil
	}

	var spans []notion.RichText
	for _, piece := range splitRunes(content, maxRichTextLength) {
		span := notion.RichText{
			Type:        "text",
			Text:        &notion.TextContent{Content: piece},
			Annotations: style.annotations(),
		}
		if style.link != "" {
			span.Text.Link = &notion.Link{URL: style.link}
		}
		spans = append(spans, span)
	}
	return spans
}

// spansFromString builds plain spans from content, preserving the text but
// respecting the per-span length bound.
func spansFromString(content string) []notion.RichText {
	return styledSpans(content, spanStyle{})
}

func splitRunes(content string, limit int) []string {
	runes := []rune(content)
	if len(runes) <= limit {
		return []string{content}
	}
	var pieces []string
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
