// Package config loads the JSON5 config file and resolves the memory
// search settings consumed by the rest of the system.
package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/titanous/json5"
)

// Defaults for search tunables.
const (
	DefaultVectorWeight        = 0.7
	DefaultTextWeight          = 0.3
	DefaultMaxResults          = 6
	DefaultCandidateMultiplier = 4
	DefaultMinScore            = 0.0
)

// Config is the on-disk configuration shape (JSON5).
type Config struct {
	Agent  AgentConfig  `json:"agent"`
	Memory MemoryConfig `json:"memory"`
}

// AgentConfig identifies the agent and its workspace.
type AgentConfig struct {
	ID        string `json:"id,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

// MemoryConfig holds the raw, partially-specified memory settings.
// Zero values mean "use the default"; Hybrid defaults to on.
type MemoryConfig struct {
	Provider            string   `json:"provider,omitempty"` // "openai", "ollama", "none"
	Model               string   `json:"model,omitempty"`
	APIBase             string   `json:"apiBase,omitempty"`
	APIKeyEnv           string   `json:"apiKeyEnv,omitempty"`
	Hybrid              *bool    `json:"hybrid,omitempty"`
	VectorWeight        float64  `json:"vectorWeight,omitempty"`
	TextWeight          float64  `json:"textWeight,omitempty"`
	MinScore            float64  `json:"minScore,omitempty"`
	MaxResults          int      `json:"maxResults,omitempty"`
	CandidateMultiplier int      `json:"candidateMultiplier,omitempty"`
	Sources             []string `json:"sources,omitempty"`
}

// ResolvedSearchConfig is the fully-defaulted search configuration handed
// to the memory engine. It is opaque to the engine beyond its fields.
type ResolvedSearchConfig struct {
	Provider            string   `json:"provider"`
	Model               string   `json:"model"`
	APIBase             string   `json:"apiBase"`
	APIKey              string   `json:"-"`
	Hybrid              bool     `json:"hybrid"`
	VectorWeight        float64  `json:"vectorWeight"`
	TextWeight          float64  `json:"textWeight"`
	MinScore            float64  `json:"minScore"`
	MaxResults          int      `json:"maxResults"`
	CandidateMultiplier int      `json:"candidateMultiplier"`
	Sources             []string `json:"sources"`
}

// Load reads and parses the JSON5 config file. A missing file yields the
// zero config rather than an error; malformed content is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ResolveSearch applies defaults and environment lookups, producing the
// value the engine consumes.
func (c *Config) ResolveSearch() ResolvedSearchConfig {
	m := c.Memory

	r := ResolvedSearchConfig{
		Provider:            m.Provider,
		Model:               m.Model,
		APIBase:             m.APIBase,
		Hybrid:              true,
		VectorWeight:        m.VectorWeight,
		TextWeight:          m.TextWeight,
		MinScore:            m.MinScore,
		MaxResults:          m.MaxResults,
		CandidateMultiplier: m.CandidateMultiplier,
		Sources:             append([]string(nil), m.Sources...),
	}

	if m.Hybrid != nil {
		r.Hybrid = *m.Hybrid
	}
	if r.VectorWeight == 0 && r.TextWeight == 0 {
		r.VectorWeight = DefaultVectorWeight
		r.TextWeight = DefaultTextWeight
	}
	if r.MaxResults <= 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.CandidateMultiplier <= 0 {
		r.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if len(r.Sources) == 0 {
		r.Sources = []string{"memory"}
	}
	if m.APIKeyEnv != "" {
		r.APIKey = os.Getenv(m.APIKeyEnv)
	}
	return r
}

// Hash returns a stable digest of the resolved config, used to key the
// engine registry. The API key is excluded via its json tag.
func (r ResolvedSearchConfig) Hash() string {
	data, _ := json.Marshal(r)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8])
}

// ResolveWorkspace returns the agent workspace directory, defaulting to
// ~/.recall/workspace.
func (c *Config) ResolveWorkspace() string {
	if c.Agent.Workspace != "" {
		return expandHome(c.Agent.Workspace)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recall/workspace"
	}
	return filepath.Join(home, ".recall", "workspace")
}

// ResolveAgentID returns the normalized agent id, defaulting to "default".
func (c *Config) ResolveAgentID() string {
	return NormalizeAgentID(c.Agent.ID)
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
