package memory

import "strings"

// defaultChunkLen bounds session transcript chunks; memories from the
// typed stores are indexed whole and never pass through here.
const defaultChunkLen = 1000

// TextChunk is a fragment of a transcript with its source line range.
type TextChunk struct {
	Text      string
	StartLine int
	EndLine   int
}

// ChunkText splits transcript text at paragraph boundaries, flushing
// early once a chunk reaches half the limit and force-flushing at the
// limit. Line numbers are 1-indexed.
func ChunkText(text string, maxChunkLen int) []TextChunk {
	if maxChunkLen <= 0 {
		maxChunkLen = defaultChunkLen
	}

	lines := strings.Split(text, "\n")
	var chunks []TextChunk
	var current strings.Builder
	startLine := 1

	flush := func(endLine int) {
		content := strings.TrimSpace(current.String())
		if content != "" {
			chunks = append(chunks, TextChunk{
				Text:      content,
				StartLine: startLine,
				EndLine:   endLine,
			})
		}
		current.Reset()
		startLine = endLine + 1
	}

	for i, line := range lines {
		lineNum := i + 1

		// Paragraph boundary: flush on an empty line once the chunk is
		// large enough to stand alone.
		if strings.TrimSpace(line) == "" && current.Len() >= maxChunkLen/2 {
			flush(lineNum - 1)
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)

		if current.Len() >= maxChunkLen {
			flush(lineNum)
		}
	}

	if current.Len() > 0 {
		flush(len(lines))
	}

	return chunks
}
