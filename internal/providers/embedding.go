// Package providers implements the embedding provider boundary: pluggable
// backends that turn text into fixed-length vectors. The memory system
// treats every provider failure as soft; an absent provider simply means
// lexical-only search.
package providers

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/recall/internal/config"
)

// EmbeddingProvider generates vector embeddings for text.
type EmbeddingProvider interface {
	Name() string
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Resolve builds the embedding provider named by the resolved config.
// Provider "none" (or empty) returns nil, which callers must treat as
// "no vectors available". An unrecognized provider name is a
// configuration defect and errors.
func Resolve(cfg config.ResolvedSearchConfig) (EmbeddingProvider, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		return NewOpenAIEmbedder(cfg.APIKey, cfg.APIBase, cfg.Model), nil
	case "ollama":
		return NewOllamaEmbedder(cfg.APIBase, cfg.Model), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}
