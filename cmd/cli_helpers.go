package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nextlevelbuilder/recall/internal/config"
	"github.com/nextlevelbuilder/recall/internal/memory"
	"github.com/nextlevelbuilder/recall/internal/providers"
	"github.com/nextlevelbuilder/recall/internal/store"
)

// resolveConfigPath returns the config file path: $RECALL_CONFIG if set,
// otherwise ~/.recall/config.json5.
func resolveConfigPath() string {
	if p := os.Getenv("RECALL_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json5"
	}
	return filepath.Join(home, ".recall", "config.json5")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openStores opens the six typed stores under the configured workspace.
func openStores(cfg *config.Config) *store.Stores {
	stores, err := store.Open(filepath.Join(cfg.ResolveWorkspace(), "memory"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening memory stores: %v\n", err)
		os.Exit(1)
	}
	return stores
}

// openManager opens the search engine for the configured workspace, with
// its embedding provider resolved.
func openManager(cfg *config.Config) *memory.Manager {
	resolved := cfg.ResolveSearch()
	mgr, err := memory.NewManager(cfg.ResolveWorkspace(), resolved)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening memory index: %v\n", err)
		os.Exit(1)
	}
	provider, err := providers.Resolve(resolved)
	if err != nil {
		mgr.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	mgr.SetEmbeddingProvider(provider)
	return mgr
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
