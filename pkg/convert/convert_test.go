package convert_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/notesync/pkg/convert"
	"github.com/agentstation/notesync/pkg/notion"
)

func TestToBlocks(t *testing.T) {
	c := convert.New()

	t.Run("headings and paragraph", func(t *testing.T) {
		blocks := c.ToBlocks("# Title\n\nSome *italic* and **bold** text.\n")
		require.Len(t, blocks, 2)

		assert.Equal(t, "heading_1", blocks[0].Type)
		require.NotNil(t, blocks[0].Heading1)
		assert.Equal(t, "Title", blocks[0].Heading1.RichText[0].Text.Content)

		assert.Equal(t, "paragraph", blocks[1].Type)
		spans := blocks[1].Paragraph.RichText
		var sawItalic, sawBold bool
		for _, span := range spans {
			if span.Annotations != nil && span.Annotations.Italic {
				sawItalic = true
				assert.Equal(t, "italic", span.Text.Content)
			}
			if span.Annotations != nil && span.Annotations.Bold {
				sawBold = true
				assert.Equal(t, "bold", span.Text.Content)
			}
		}
		assert.True(t, sawItalic)
		assert.True(t, sawBold)
	})

	t.Run("deep headings clamp to heading_3", func(t *testing.T) {
		blocks := c.ToBlocks("##### Deep\n")
		require.Len(t, blocks, 1)
		assert.Equal(t, "heading_3", blocks[0].Type)
	})

	t.Run("lists with nesting", func(t *testing.T) {
		blocks := c.ToBlocks("- one\n- two\n  - nested\n\n1. first\n2. second\n")
		require.Len(t, blocks, 4)

		assert.Equal(t, "bulleted_list_item", blocks[0].Type)
		assert.Equal(t, "one", blocks[0].BulletedListItem.RichText[0].Text.Content)

		require.Len(t, blocks[1].BulletedListItem.Children, 1)
		nested := blocks[1].BulletedListItem.Children[0]
		assert.Equal(t, "bulleted_list_item", nested.Type)
		assert.Equal(t, "nested", nested.BulletedListItem.RichText[0].Text.Content)

		assert.Equal(t, "numbered_list_item", blocks[2].Type)
		assert.Equal(t, "numbered_list_item", blocks[3].Type)
	})

	t.Run("fenced code block", func(t *testing.T) {
		blocks := c.ToBlocks("```go\nfmt.Println(\"hi\")\n```\n")
		require.Len(t, blocks, 1)
		require.Equal(t, "code", blocks[0].Type)
		assert.Equal(t, "go", blocks[0].Code.Language)
		assert.Equal(t, `fmt.Println("hi")`, blocks[0].Code.RichText[0].Text.Content)
	})

	t.Run("code block without language", func(t *testing.T) {
		blocks := c.ToBlocks("```\nplain\n```\n")
		require.Len(t, blocks, 1)
		assert.Equal(t, "plain text", blocks[0].Code.Language)
	})

	t.Run("quote and divider", func(t *testing.T) {
		blocks := c.ToBlocks("> wisdom\n\n---\n")
		require.Len(t, blocks, 2)
		assert.Equal(t, "quote", blocks[0].Type)
		assert.Equal(t, "wisdom", blocks[0].Quote.RichText[0].Text.Content)
		assert.Equal(t, "divider", blocks[1].Type)
	})

	t.Run("links survive with valid URL", func(t *testing.T) {
		blocks := c.ToBlocks("[docs](https://example.com/docs)\n")
		require.Len(t, blocks, 1)
		span := blocks[0].Paragraph.RichText[0]
		require.NotNil(t, span.Text.Link)
		assert.Equal(t, "https://example.com/docs", span.Text.Link.URL)
		assert.Equal(t, "docs", span.Text.Content)
	})

	t.Run("javascript scheme stripped keeping text", func(t *testing.T) {
		blocks := c.ToBlocks("[click me](javascript:alert(1))\n")
		require.Len(t, blocks, 1)
		span := blocks[0].Paragraph.RichText[0]
		assert.Nil(t, span.Text.Link)
		assert.Equal(t, "click me", span.Text.Content)
	})

	t.Run("empty body yields placeholder", func(t *testing.T) {
		blocks := c.ToBlocks("")
		require.Len(t, blocks, 1)
		assert.Equal(t, "paragraph", blocks[0].Type)
		assert.Equal(t, "(No content)", blocks[0].Paragraph.RichText[0].Text.Content)
	})

	t.Run("image-only paragraph keeps an empty text list", func(t *testing.T) {
		blocks := c.ToBlocks("![](image.png)\n")
		require.Len(t, blocks, 1)
		assert.Equal(t, "paragraph", blocks[0].Type)
		require.NotNil(t, blocks[0].Paragraph)
		require.NotNil(t, blocks[0].Paragraph.RichText)

		raw, err := json.Marshal(blocks)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"rich_text":[]`)
		assert.NotContains(t, string(raw), `"rich_text":null`)
	})

	t.Run("empty heading keeps an empty text list", func(t *testing.T) {
		blocks := c.ToBlocks("#\n")
		require.Len(t, blocks, 1)
		require.NotNil(t, blocks[0].Heading1)
		require.NotNil(t, blocks[0].Heading1.RichText)
	})

	t.Run("long text split at span bound", func(t *testing.T) {
		blocks := c.ToBlocks(strings.Repeat("a", 4500))
		require.NotEmpty(t, blocks)
		spans := blocks[0].Paragraph.RichText
		require.Len(t, spans, 3)
		assert.Len(t, spans[0].Text.Content, 2000)
		assert.Len(t, spans[2].Text.Content, 500)
	})
}

func TestSanitize(t *testing.T) {
	t.Run("recurses into children", func(t *testing.T) {
		blocks := []notion.Block{
			{
				Object: "block",
				Type:   "bulleted_list_item",
				BulletedListItem: &notion.RichTextBlock{
					RichText: []notion.RichText{notion.Text("parent")},
					Children: []notion.Block{
						{
							Object: "block",
							Type:   "paragraph",
							Paragraph: &notion.RichTextBlock{
								RichText: []notion.RichText{
									{
										Type: "text",
										Text: &notion.TextContent{
											Content: "nested",
											Link:    &notion.Link{URL: "ftp://example.com"},
										},
									},
								},
							},
						},
					},
				},
			},
		}

		out := convert.Sanitize(blocks)
		nested := out[0].BulletedListItem.Children[0].Paragraph.RichText[0]
		assert.Nil(t, nested.Text.Link)
		assert.Equal(t, "nested", nested.Text.Content)
	})

	t.Run("trims valid URLs", func(t *testing.T) {
		blocks := []notion.Block{
			notion.Paragraph(notion.RichText{
				Type: "text",
				Text: &notion.TextContent{Content: "x", Link: &notion.Link{URL: "  https://example.com  "}},
			}),
		}
		out := convert.Sanitize(blocks)
		assert.Equal(t, "https://example.com", out[0].Paragraph.RichText[0].Text.Link.URL)
	})
}
