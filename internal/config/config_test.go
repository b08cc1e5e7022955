package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileIsZeroConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Memory.Provider != "" || cfg.Agent.ID != "" {
		t.Errorf("missing file config = %+v", cfg)
	}
}

func TestLoad_JSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	content := `{
  // comments and trailing commas are allowed
  agent: { id: "My Agent", workspace: "/tmp/ws" },
  memory: {
    provider: "openai",
    model: "text-embedding-3-small",
    apiKeyEnv: "TEST_RECALL_KEY",
    hybrid: false,
    maxResults: 12,
    sources: ["memory", "sessions"],
  },
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Memory.Provider != "openai" || cfg.Memory.MaxResults != 12 {
		t.Errorf("memory = %+v", cfg.Memory)
	}
	if cfg.Memory.Hybrid == nil || *cfg.Memory.Hybrid {
		t.Error("hybrid: false not parsed")
	}
	if cfg.ResolveAgentID() != "my-agent" {
		t.Errorf("agent id = %q", cfg.ResolveAgentID())
	}
	if cfg.ResolveWorkspace() != "/tmp/ws" {
		t.Errorf("workspace = %q", cfg.ResolveWorkspace())
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	os.WriteFile(path, []byte("{nope"), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("malformed config accepted")
	}
}

func TestResolveSearch_Defaults(t *testing.T) {
	r := (&Config{}).ResolveSearch()
	if !r.Hybrid {
		t.Error("hybrid should default on")
	}
	if r.VectorWeight != DefaultVectorWeight || r.TextWeight != DefaultTextWeight {
		t.Errorf("weights = %f/%f", r.VectorWeight, r.TextWeight)
	}
	if r.MaxResults != DefaultMaxResults || r.CandidateMultiplier != DefaultCandidateMultiplier {
		t.Errorf("limits = %d/%d", r.MaxResults, r.CandidateMultiplier)
	}
	if len(r.Sources) != 1 || r.Sources[0] != "memory" {
		t.Errorf("sources = %v", r.Sources)
	}
}

func TestResolveSearch_ExplicitWeightsKept(t *testing.T) {
	cfg := &Config{Memory: MemoryConfig{VectorWeight: 0.5, TextWeight: 0.5}}
	r := cfg.ResolveSearch()
	if r.VectorWeight != 0.5 || r.TextWeight != 0.5 {
		t.Errorf("weights = %f/%f", r.VectorWeight, r.TextWeight)
	}
}

func TestResolveSearch_APIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_RECALL_KEY", "sk-secret")
	cfg := &Config{Memory: MemoryConfig{APIKeyEnv: "TEST_RECALL_KEY"}}
	r := cfg.ResolveSearch()
	if r.APIKey != "sk-secret" {
		t.Errorf("api key = %q", r.APIKey)
	}
}

func TestHash_StableAndKeySensitive(t *testing.T) {
	a := (&Config{}).ResolveSearch()
	b := (&Config{}).ResolveSearch()
	if a.Hash() != b.Hash() {
		t.Error("same config hashes differently")
	}

	c := a
	c.MinScore = 0.4
	if c.Hash() == a.Hash() {
		t.Error("changed config hashes the same")
	}

	// The API key never reaches the hash.
	d := a
	d.APIKey = "sk-secret"
	if d.Hash() != a.Hash() {
		t.Error("api key leaked into the hash")
	}
}

func TestNormalizeAgentID(t *testing.T) {
	cases := map[string]string{
		"":           "default",
		"Main Agent": "main-agent",
		"dev-2":      "dev-2",
		"weird!!ID":  "weird-id",
	}
	for in, want := range cases {
		if got := NormalizeAgentID(in); got != want {
			t.Errorf("NormalizeAgentID(%q) = %q, want %q", in, got, want)
		}
	}
}
