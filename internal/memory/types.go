// Package memory provides the search side of the agent's memory system:
// an indexer that reconciles on-disk memory files with a SQLite index
// (FTS5 + stored embeddings), and a hybrid search engine that answers
// free-text queries with vector similarity, lexical ranking, or both.
package memory

import "github.com/nextlevelbuilder/recall/internal/config"

// Corpus names for the source column.
const (
	SourceMemory   = "memory"
	SourceSessions = "sessions"
)

// Chunk is the indexed, embeddable unit derived from one memory (or one
// transcript paragraph). Its ID is deterministic: path + memory id +
// position for memory files, path + start line for session transcripts.
type Chunk struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Source    string    `json:"source"`
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`
	Hash      string    `json:"hash"`
	Model     string    `json:"model"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// SearchResult is a single scored snippet from a memory search.
type SearchResult struct {
	Path      string  `json:"path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet"`
	Source    string  `json:"source"`
}

// SearchOptions configures one search call.
type SearchOptions struct {
	MaxResults      int     // top-K results; 0 uses the configured default
	MinScore        float64 // minimum combined score
	ConversationKey string  // restrict the sessions corpus to one conversation
}

// FileMeta is the stored sync watermark for one indexed file.
type FileMeta struct {
	Path   string
	Source string
	Hash   string
	Mtime  int64
	Size   int64
}

// Status is the read-only introspection view of one engine.
type Status struct {
	WorkspaceDir string   `json:"workspaceDir"`
	IndexPath    string   `json:"indexPath"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	Sources      []string `json:"sources"`
	FileCount    int      `json:"fileCount"`
	ChunkCount   int      `json:"chunkCount"`
	Initialized  bool     `json:"initialized"`
}

// searchDefaults pulls the tunables out of the resolved config, falling
// back to package defaults for zero values.
func searchDefaults(cfg config.ResolvedSearchConfig) config.ResolvedSearchConfig {
	out := cfg
	if out.VectorWeight == 0 && out.TextWeight == 0 {
		out.VectorWeight = config.DefaultVectorWeight
		out.TextWeight = config.DefaultTextWeight
	}
	if out.MaxResults <= 0 {
		out.MaxResults = config.DefaultMaxResults
	}
	if out.CandidateMultiplier <= 0 {
		out.CandidateMultiplier = config.DefaultCandidateMultiplier
	}
	if len(out.Sources) == 0 {
		out.Sources = []string{SourceMemory}
	}
	return out
}
