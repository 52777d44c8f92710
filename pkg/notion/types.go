// Package notion provides a thin typed client for the subset of the Notion
// API that page reconciliation needs: retrieve a page, create a page under a
// parent, append block children, list children, and trash a page. Response
// shapes are modeled as explicit structs so callers never touch the wire
// representation.
package notion

// MaxChildrenPerRequest is the Notion API bound on block children per call.
// Content beyond this is appended in follow-up requests, in order.
const MaxChildrenPerRequest = 100

// Page is a Notion page as returned by the retrieve endpoint.
type Page struct {
	Object   string `json:"object"`
	ID       string `json:"id"`
	Archived bool   `json:"archived"`
	InTrash  bool   `json:"in_trash"`
	Parent   Parent `json:"parent"`
	URL      string `json:"url,omitempty"`
}

// Parent references the container a page or block lives under.
type Parent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// IsPage reports whether the parent is another page (as opposed to a
// database or the workspace root).
func (p Parent) IsPage() bool {
	return p.Type == "page_id" && p.PageID != ""
}

// Link is a hyperlink attached to a rich text span.
type Link struct {
	URL string `json:"url"`
}

// TextContent is the text payload of a rich text span.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Annotations are inline styling flags on a rich text span.
type Annotations struct {
	Bold          bool `json:"bold,omitempty"`
	Italic        bool `json:"italic,omitempty"`
	Strikethrough bool `json:"strikethrough,omitempty"`
	Code          bool `json:"code,omitempty"`
}

// RichText is one styled text span.
type RichText struct {
	Type        string       `json:"type"`
	Text        *TextContent `json:"text,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	PlainText   string       `json:"plain_text,omitempty"`
}

// Text builds a plain rich text span.
func Text(content string) RichText {
	return RichText{Type: "text", Text: &TextContent{Content: content}}
}

// RichTextBlock is the shared payload of block types that carry rich text
// and optional nested children.
type RichTextBlock struct {
	RichText []RichText `json:"rich_text"`
	Children []Block    `json:"children,omitempty"`
}

// CodeBlock is the payload of a code block.
type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
}

// ChildPage is the payload of a child_page block in list-children results.
type ChildPage struct {
	Title string `json:"title"`
}

// Block is a Notion content block. Exactly one payload field matching Type
// is set.
type Block struct {
	Object string `json:"object,omitempty"`
	ID     string `json:"id,omitempty"`
	Type   string `json:"type"`

	Paragraph        *RichTextBlock `json:"paragraph,omitempty"`
	Heading1         *RichTextBlock `json:"heading_1,omitempty"`
	Heading2         *RichTextBlock `json:"heading_2,omitempty"`
	Heading3         *RichTextBlock `json:"heading_3,omitempty"`
	BulletedListItem *RichTextBlock `json:"bulleted_list_item,omitempty"`
	NumberedListItem *RichTextBlock `json:"numbered_list_item,omitempty"`
	Quote            *RichTextBlock `json:"quote,omitempty"`
	Code             *CodeBlock     `json:"code,omitempty"`
	Divider          *struct{}      `json:"divider,omitempty"`
	ChildPage        *ChildPage     `json:"child_page,omitempty"`
}

// Paragraph builds a paragraph block from rich text spans.
func Paragraph(spans ...RichText) Block {
	return Block{Object: "block", Type: "paragraph", Paragraph: &RichTextBlock{RichText: spans}}
}

// Content returns the block's rich text payload, if it has one.
func (b Block) Content() *RichTextBlock {
	switch b.Type {
	case "paragraph":
		return b.Paragraph
	case "heading_1":
		return b.Heading1
	case "heading_2":
		return b.Heading2
	case "heading_3":
		return b.Heading3
	case "bulleted_list_item":
		return b.BulletedListItem
	case "numbered_list_item":
		return b.NumberedListItem
	case "quote":
		return b.Quote
	}
	return nil
}

// Children is one page of list-children results.
type Children struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// Chunk splits blocks into batches of at most MaxChildrenPerRequest,
// preserving order.
func Chunk(blocks []Block) [][]Block {
	if len(blocks) == 0 {
		return nil
	}
	chunks := make([][]Block, 0, (len(blocks)+MaxChildrenPerRequest-1)/MaxChildrenPerRequest)
	for start := 0; start < len(blocks); start += MaxChildrenPerRequest {
		end := start + MaxChildrenPerRequest
		if end > len(blocks) {
			end = len(blocks)
		}
		chunks = append(chunks, blocks[start:end])
	}
	return chunks
}
