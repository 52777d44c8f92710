// Package convert turns a Markdown document body into the block sequence
// the Notion API accepts. Conversion never fails: a panicking parse is
// recovered into a bounded plain-text excerpt, links with unsupported
// schemes are stripped while their text is kept, and an empty result is
// replaced with a placeholder so the remote store never sees an empty
// children list.
package convert

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/agentstation/notesync/pkg/logging"
	"github.com/agentstation/notesync/pkg/notion"
)

const (
	// fallbackExcerptLimit bounds the raw-body excerpt emitted when
	// conversion fails.
	fallbackExcerptLimit = 2000

	// maxRichTextLength is the Notion API bound on one rich text span.
	maxRichTextLength = 2000

	// placeholderText replaces an empty conversion result; the store
	// rejects pages with no content blocks.
	placeholderText = "(No content)"
)

// Converter converts Markdown bodies into Notion blocks.
type Converter struct {
	md goldmark.Markdown
}

// New creates a Converter with GFM extensions enabled.
func New() *Converter {
	return &Converter{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// ToBlocks converts body into a sanitized, non-empty block sequence.
func (c *Converter) ToBlocks(body string) []notion.Block {
	blocks := c.convert(body)
	blocks = Sanitize(blocks)
	if len(blocks) == 0 {
		return []notion.Block{notion.Paragraph(notion.Text(placeholderText))}
	}
	return blocks
}

// convert parses the Markdown and maps the AST to blocks, recovering any
// parser panic into a plain-text fallback.
func (c *Converter) convert(body string) (blocks []notion.Block) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn().Any("panic", r).Msg("Markdown conversion failed, falling back to excerpt")
			blocks = fallbackBlocks(body)
		}
	}()

	src := []byte(body)
	doc := c.md.Parser().Parse(text.NewReader(src))

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		blocks = append(blocks, blockFromNode(node, src)...)
	}
	return blocks
}

// fallbackBlocks builds the recovery block: a bounded excerpt of the raw
// body, or the placeholder when the body is empty.
func fallbackBlocks(body string) []notion.Block {
	excerpt := strings.TrimSpace(body)
	if excerpt == "" {
		return []notion.Block{notion.Paragraph(notion.Text(placeholderText))}
	}
	runes := []rune(excerpt)
	if len(runes) > fallbackExcerptLimit {
		excerpt = string(runes[:fallbackExcerptLimit])
	}
	return []notion.Block{notion.Paragraph(spansFromString(excerpt)...)}
}

func blockFromNode(node ast.Node, src []byte) []notion.Block {
	switch n := node.(type) {
	case *ast.Heading:
		return []notion.Block{headingBlock(n, src)}
	case *ast.Paragraph:
		return []notion.Block{notion.Paragraph(inlineSpans(n, src, spanStyle{})...)}
	case *ast.TextBlock:
		return []notion.Block{notion.Paragraph(inlineSpans(n, src, spanStyle{})...)}
	case *ast.List:
		return listBlocks(n, src)
	case *ast.FencedCodeBlock:
		return []notion.Block{codeBlock(n.Language(src), n.Lines(), src)}
	case *ast.CodeBlock:
		return []notion.Block{codeBlock(nil, n.Lines(), src)}
	case *ast.Blockquote:
		return []notion.Block{quoteBlock(n, src)}
	case *ast.ThematicBreak:
		return []notion.Block{{Object: "block", Type: "divider", Divider: &struct{}{}}}
	case *ast.HTMLBlock:
		// Raw HTML has no Notion equivalent; keep its text so nothing is lost.
		raw := strings.TrimSpace(string(linesValue(n.Lines(), src)))
		if raw == "" {
			return nil
		}
		return []notion.Block{notion.Paragraph(spansFromString(raw)...)}
	default:
		// Tables and other exotic nodes degrade to their plain text.
		flat := strings.TrimSpace(flattenText(node, src))
		if flat == "" {
			return nil
		}
		return []notion.Block{notion.Paragraph(spansFromString(flat)...)}
	}
}

func headingBlock(h *ast.Heading, src []byte) notion.Block {
	payload := &notion.RichTextBlock{RichText: inlineSpans(h, src, spanStyle{})}
	block := notion.Block{Object: "block"}

	// Notion supports three heading depths; deeper ones clamp to the third.
	switch h.Level {
	case 1:
		block.Type = "heading_1"
		block.Heading1 = payload
	case 2:
		block.Type = "heading_2"
		block.Heading2 = payload
	default:
		block.Type = "heading_3"
		block.Heading3 = payload
	}
	return block
}

func listBlocks(list *ast.List, src []byte) []notion.Block {
	itemType := "bulleted_list_item"
	if list.IsOrdered() {
		itemType = "numbered_list_item"
	}

	var blocks []notion.Block
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		payload := &notion.RichTextBlock{}
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			switch c := child.(type) {
			case *ast.TextBlock, *ast.Paragraph:
				if len(payload.RichText) == 0 {
					payload.RichText = inlineSpans(c, src, spanStyle{})
				} else {
					payload.Children = append(payload.Children, notion.Paragraph(inlineSpans(c, src, spanStyle{})...))
				}
			case *ast.List:
				payload.Children = append(payload.Children, listBlocks(c, src)...)
			default:
				payload.Children = append(payload.Children, blockFromNode(child, src)...)
			}
		}

		block := notion.Block{Object: "block", Type: itemType}
		if itemType == "numbered_list_item" {
			block.NumberedListItem = payload
		} else {
			block.BulletedListItem = payload
		}
		blocks = append(blocks, block)
	}
	return blocks
}

func codeBlock(language []byte, lines *text.Segments, src []byte) notion.Block {
	lang := strings.ToLower(strings.TrimSpace(string(language)))
	if lang == "" {
		lang = "plain text"
	}
	content := strings.TrimRight(string(linesValue(lines, src)), "\n")
	return notion.Block{
		Object: "block",
		Type:   "code",
		Code: &notion.CodeBlock{
			RichText: spansFromString(content),
			Language: lang,
		},
	}
}

func quoteBlock(quote *ast.Blockquote, src []byte) notion.Block {
	payload := &notion.RichTextBlock{}
	for child := quote.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			if len(payload.RichText) == 0 {
				payload.RichText = inlineSpans(c, src, spanStyle{})
			} else {
				payload.Children = append(payload.Children, notion.Paragraph(inlineSpans(c, src, spanStyle{})...))
			}
		default:
			payload.Children = append(payload.Children, blockFromNode(child, src)...)
		}
	}
	return notion.Block{Object: "block", Type: "quote", Quote: payload}
}

func linesValue(lines *text.Segments, src []byte) []byte {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		b.Write(segment.Value(src))
	}
	return []byte(b.String())
}

// flattenText collects the raw text beneath a node, separating text nodes
// with spaces where line structure would otherwise glue words together.
func flattenText(node ast.Node, src []byte) string {
	var parts []string
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			parts = append(parts, string(t.Segment.Value(src)))
		case *ast.String:
			parts = append(parts, string(t.Value))
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(parts, " ")
}
