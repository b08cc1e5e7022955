package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nextlevelbuilder/recall/internal/config"
	"github.com/nextlevelbuilder/recall/internal/providers"
)

// Manager is one workspace's memory engine: it owns the SQLite index,
// runs sync, and answers searches. Get one through the Registry rather
// than constructing duplicates for the same workspace.
type Manager struct {
	workspaceDir string
	memoryDir    string
	sessionsDir  string
	dbPath       string
	cfg          config.ResolvedSearchConfig
	store        *SQLiteStore

	mu       sync.RWMutex
	provider providers.EmbeddingProvider

	coldSync singleflight.Group
}

// IndexFileName is the index database file under the memory directory.
const IndexFileName = "index.db"

// NewManager opens (or creates) the index for the given workspace.
func NewManager(workspaceDir string, cfg config.ResolvedSearchConfig) (*Manager, error) {
	cfg = searchDefaults(cfg)
	memoryDir := filepath.Join(workspaceDir, "memory")
	if err := os.MkdirAll(memoryDir, 0755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}

	dbPath := filepath.Join(memoryDir, IndexFileName)
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	return &Manager{
		workspaceDir: workspaceDir,
		memoryDir:    memoryDir,
		sessionsDir:  filepath.Join(workspaceDir, "sessions"),
		dbPath:       dbPath,
		cfg:          cfg,
		store:        store,
	}, nil
}

// SetEmbeddingProvider installs (or clears) the embedding backend.
func (m *Manager) SetEmbeddingProvider(p providers.EmbeddingProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = p
}

func (m *Manager) getProvider() providers.EmbeddingProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.provider
}

// ChunkCount returns the number of indexed chunks.
func (m *Manager) ChunkCount() int { return m.store.ChunkCount() }

// Status reports the engine's diagnostic view.
func (m *Manager) Status() Status {
	st := Status{
		WorkspaceDir: m.workspaceDir,
		IndexPath:    m.dbPath,
		Sources:      append([]string(nil), m.cfg.Sources...),
		FileCount:    m.store.FileCount(),
		ChunkCount:   m.store.ChunkCount(),
	}
	st.Initialized = st.ChunkCount > 0
	if p := m.getProvider(); p != nil {
		st.Provider = p.Name()
		st.Model = p.Model()
	}
	return st
}

// GetFile reads an indexed file by workspace-relative path, optionally
// restricted to a line range (fromLine is 1-indexed; numLines 0 means
// through end of file).
func (m *Manager) GetFile(relPath string, fromLine, numLines int) (string, error) {
	abs := filepath.Join(m.workspaceDir, filepath.FromSlash(relPath))
	if !strings.HasPrefix(abs, filepath.Clean(m.workspaceDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes workspace: %s", relPath)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}

	text := string(data)
	if fromLine <= 0 && numLines <= 0 {
		return text, nil
	}

	lines := strings.Split(text, "\n")
	start := 0
	if fromLine > 0 {
		start = fromLine - 1
	}
	if start >= len(lines) {
		return "", nil
	}
	end := len(lines)
	if numLines > 0 && start+numLines < end {
		end = start + numLines
	}
	return strings.Join(lines[start:end], "\n"), nil
}

// Close closes the underlying index.
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) sourceEnabled(source string) bool {
	for _, s := range m.cfg.Sources {
		if s == source {
			return true
		}
	}
	return false
}
