package memory

import "strings"

const (
	snippetWindow = 50  // characters kept on each side of the match
	snippetMaxLen = 200 // fallback prefix length when the query never occurs
)

// makeSnippet extracts the portion of text around the first
// case-insensitive occurrence of query, padded with ellipses where
// clipped. When the query does not occur literally, the text's prefix is
// returned instead.
func makeSnippet(text, query string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		if len(text) <= snippetMaxLen {
			return text
		}
		return text[:snippetMaxLen] + "..."
	}

	start := idx - snippetWindow
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + snippetWindow
	if end > len(text) {
		end = len(text)
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}
