package convert

import (
	"strings"

	"github.com/agentstation/notesync/pkg/notion"
)

// Sanitize enforces the remote store's content rules on a block tree,
// recursively over nested children: every link must carry an http or https
// URL after trimming; anything else is stripped while the text is kept.
// Text payloads are never nil afterwards, since the store rejects a null
// rich text list.
func Sanitize(blocks []notion.Block) []notion.Block {
	for i := range blocks {
		sanitizeBlock(&blocks[i])
	}
	return blocks
}

func sanitizeBlock(block *notion.Block) {
	if payload := block.Content(); payload != nil {
		if payload.RichText == nil {
			payload.RichText = []notion.RichText{}
		}
		sanitizeSpans(payload.RichText)
		Sanitize(payload.Children)
	}
	if block.Code != nil {
		if block.Code.RichText == nil {
			block.Code.RichText = []notion.RichText{}
		}
		sanitizeSpans(block.Code.RichText)
	}
}

func sanitizeSpans(spans []notion.RichText) {
	for i := range spans {
		text := spans[i].Text
		if text == nil || text.Link == nil {
			continue
		}
		url := strings.TrimSpace(text.Link.URL)
		if validLinkURL(url) {
			text.Link.URL = url
		} else {
			text.Link = nil
		}
	}
}

func validLinkURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
