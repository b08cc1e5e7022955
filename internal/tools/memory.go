package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nextlevelbuilder/recall/internal/memory"
)

// MemorySearchTool implements the memory_search tool for hybrid
// semantic + lexical search over the indexed memory files.
type MemorySearchTool struct {
	manager *memory.Manager
}

func NewMemorySearchTool(manager *memory.Manager) *MemorySearchTool {
	return &MemorySearchTool{manager: manager}
}

func (t *MemorySearchTool) Name() string { return "memory_search" }

func (t *MemorySearchTool) Description() string {
	return "Search long-term memory (facts, events, patterns, intentions) before answering questions about prior work, decisions, dates, people, or preferences; returns top snippets with path + lines."
}

func (t *MemorySearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Natural language search query.",
			},
			"maxResults": map[string]interface{}{
				"type":        "number",
				"description": "Maximum number of results to return (default: 6)",
			},
			"minScore": map[string]interface{}{
				"type":        "number",
				"description": "Minimum relevance score threshold (0-1)",
			},
			"conversation": map[string]interface{}{
				"type":        "string",
				"description": "Restrict session-transcript results to this conversation key.",
			},
		},
		"required": []string{"query"},
	}
}

func (t *MemorySearchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query, _ := args["query"].(string)
	if query == "" {
		return ErrorResult("query parameter is required")
	}
	if t.manager == nil {
		return ErrorResult("memory system not available")
	}

	opts := memory.SearchOptions{}
	if mr, ok := args["maxResults"].(float64); ok {
		opts.MaxResults = int(mr)
	}
	if ms, ok := args["minScore"].(float64); ok {
		opts.MinScore = ms
	}
	if conv, ok := args["conversation"].(string); ok {
		opts.ConversationKey = conv
	}

	results, err := t.manager.Search(ctx, query, opts)
	if err != nil {
		return ErrorResult(fmt.Sprintf("memory search failed: %v", err)).WithError(err)
	}
	if len(results) == 0 {
		return NewResult("No memory results found for query: " + query)
	}

	data, _ := json.MarshalIndent(map[string]interface{}{
		"results": results,
		"count":   len(results),
	}, "", "  ")
	return NewResult(string(data))
}

// MemoryGetTool implements the memory_get tool for reading indexed
// memory files by path.
type MemoryGetTool struct {
	manager *memory.Manager
}

func NewMemoryGetTool(manager *memory.Manager) *MemoryGetTool {
	return &MemoryGetTool{manager: manager}
}

func (t *MemoryGetTool) Name() string { return "memory_get" }

func (t *MemoryGetTool) Description() string {
	return "Read a memory file (memory/*.json or sessions/*.md) with optional from/lines; use after memory_search to pull only the needed lines and keep context small."
}

func (t *MemoryGetTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Workspace-relative path (e.g., 'memory/semantic.json')",
			},
			"from": map[string]interface{}{
				"type":        "number",
				"description": "Start line number (1-indexed). Omit to read from beginning.",
			},
			"lines": map[string]interface{}{
				"type":        "number",
				"description": "Number of lines to read. Omit to read entire file.",
			},
		},
		"required": []string{"path"},
	}
}

func (t *MemoryGetTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, _ := args["path"].(string)
	if path == "" {
		return ErrorResult("path parameter is required")
	}
	if t.manager == nil {
		return ErrorResult("memory system not available")
	}

	var fromLine, numLines int
	if from, ok := args["from"].(float64); ok {
		fromLine = int(from)
	}
	if lines, ok := args["lines"].(float64); ok {
		numLines = int(lines)
	}

	text, err := t.manager.GetFile(path, fromLine, numLines)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to read %s: %v", path, err)).WithError(err)
	}
	if text == "" {
		return NewResult(fmt.Sprintf("File %s is empty or the specified range has no content.", path))
	}

	data, _ := json.MarshalIndent(map[string]interface{}{
		"path": path,
		"text": text,
	}, "", "  ")
	return NewResult(string(data))
}
