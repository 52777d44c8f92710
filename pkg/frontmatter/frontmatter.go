// Package frontmatter reads and writes the metadata header block that links
// a Markdown document to its Notion page. The header is a block of
// `key: value` lines between `---` marker lines at the top of the file; the
// reserved key holds the remote page identifier. The codec preserves key
// order and every unrelated key on rewrite, so repeated syncs never disturb
// user-authored metadata.
package frontmatter

import (
	"strings"
)

// ReservedKey is the metadata field that links a document to its Notion page.
const ReservedKey = "notion_page_id"

// Marker delimits the metadata header block.
const Marker = "---"

// Field is a single `key: value` header entry.
type Field struct {
	Key   string
	Value string
}

// Fields is an ordered header mapping. Order is preserved across a
// parse/compose round trip.
type Fields []Field

// Get returns the value for key and whether the key is present.
func (f Fields) Get(key string) (string, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// Set returns fields with key set to value, overwriting in place when the
// key already exists and appending otherwise.
func (f Fields) Set(key, value string) Fields {
	for i, field := range f {
		if field.Key == key {
			out := make(Fields, len(f))
			copy(out, f)
			out[i].Value = value
			return out
		}
	}
	out := make(Fields, len(f), len(f)+1)
	copy(out, f)
	return append(out, Field{Key: key, Value: value})
}

// Document is the decoded form of a Markdown source file.
type Document struct {
	// Body is the document content below the header. Never empty-by-accident:
	// with no header present it is the entire input.
	Body string

	// Fields is the full ordered header mapping, including the reserved key.
	Fields Fields

	// PageID is the reserved identifier value, or "" when the document has
	// never been synced. Whitespace-only values count as absent.
	PageID string
}

// Parse decodes raw document text into its header mapping and body.
// Input without a header block (or with an unterminated one) yields the
// whole input as body and an empty mapping.
func Parse(raw string) Document {
	doc := Document{Body: raw}

	rest, ok := strings.CutPrefix(raw, Marker+"\n")
	if !ok {
		return doc
	}

	var headerLines []string
	body := ""
	found := false
	for {
		line, remainder, hasMore := strings.Cut(rest, "\n")
		if strings.TrimRight(line, " \t") == Marker {
			body = remainder
			found = true
			break
		}
		headerLines = append(headerLines, line)
		if !hasMore {
			break
		}
		rest = remainder
	}
	if !found {
		// Unterminated header: treat the entire input as body.
		return doc
	}

	doc.Body = body
	for _, line := range headerLines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		doc.Fields = append(doc.Fields, Field{Key: key, Value: unquote(strings.TrimSpace(value))})
	}

	if id, ok := doc.Fields.Get(ReservedKey); ok && strings.TrimSpace(id) != "" {
		doc.PageID = strings.TrimSpace(id)
	}
	return doc
}

// Compose serializes a body, an existing header mapping, and a page id back
// into document text. The reserved key is set or overwritten, all other keys
// are preserved in order, keys with empty values are dropped, and when the
// resulting mapping is empty the header block is omitted entirely.
func Compose(body string, fields Fields, pageID string) string {
	merged := fields.Set(ReservedKey, pageID)

	var b strings.Builder
	wrote := false
	for _, field := range merged {
		if strings.TrimSpace(field.Value) == "" {
			continue
		}
		if !wrote {
			b.WriteString(Marker)
			b.WriteByte('\n')
			wrote = true
		}
		b.WriteString(field.Key)
		b.WriteString(": ")
		b.WriteString(quote(field.Value))
		b.WriteByte('\n')
	}
	if !wrote {
		return body
	}
	b.WriteString(Marker)
	b.WriteByte('\n')
	b.WriteString(body)
	return b.String()
}

// quote wraps a value in double quotes when it contains characters that
// would break the line protocol (newline, quote, colon) or leading/trailing
// whitespace that Parse would otherwise trim away, escaping as needed.
func quote(value string) string {
	if !needsQuoting(value) {
		return value
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range value {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuoting(value string) bool {
	if strings.ContainsAny(value, "\n\"':") {
		return true
	}
	return value != strings.TrimSpace(value)
}

// unquote reverses quote, accepting either single or double quotes with
// backslash-escaped quote characters. Unquoted values pass through.
func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	delim := value[0]
	if (delim != '"' && delim != '\'') || value[len(value)-1] != delim {
		return value
	}
	inner := value[1 : len(value)-1]
	var b strings.Builder
	escaped := false
	for _, r := range inner {
		if escaped {
			switch r {
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	if escaped {
		b.WriteByte('\\')
	}
	return b.String()
}
