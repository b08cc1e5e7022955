package memory

import (
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nextlevelbuilder/recall/internal/config"
	"github.com/nextlevelbuilder/recall/internal/providers"
)

// Registry hands out one engine per (agentID, workspaceDir, config hash),
// so repeat callers share an instance and schema initialization happens
// once per workspace. It is an explicit object owned by the composition
// root, not ambient global state.
type Registry struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Manager]
}

// DefaultRegistrySize bounds how many engines stay open at once; an
// evicted engine is closed and reopened on next use.
const DefaultRegistrySize = 8

// NewRegistry creates a registry holding up to size open engines.
func NewRegistry(size int) (*Registry, error) {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	cache, err := lru.NewWithEvict(size, func(key string, mgr *Manager) {
		if err := mgr.Close(); err != nil {
			slog.Warn("evicted memory engine close failed", "key", key, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Registry{cache: cache}, nil
}

// Get returns the engine for the given agent and workspace, creating it
// (and resolving its embedding provider) on first use.
func (r *Registry) Get(agentID, workspaceDir string, cfg config.ResolvedSearchConfig) (*Manager, error) {
	key := agentID + "\x00" + workspaceDir + "\x00" + cfg.Hash()

	r.mu.Lock()
	defer r.mu.Unlock()

	if mgr, ok := r.cache.Get(key); ok {
		return mgr, nil
	}

	mgr, err := NewManager(workspaceDir, cfg)
	if err != nil {
		return nil, err
	}
	provider, err := providers.Resolve(cfg)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	mgr.SetEmbeddingProvider(provider)

	r.cache.Add(key, mgr)
	return mgr, nil
}

// Close shuts down every open engine.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
