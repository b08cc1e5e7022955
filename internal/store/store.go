package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// nowMillis returns the current time in Unix milliseconds. Replaceable in
// tests to control timestamps.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// fileStore is the shared persistence core behind every typed store: a
// map keyed by id, loaded once from the backing file and rewritten in
// full on every mutation. Add/Update/Delete are durable before they
// return.
type fileStore[M Record] struct {
	path string
	kind Kind

	mu    sync.RWMutex
	items map[string]M
}

// openFileStore loads the backing file. An absent, empty, or corrupt file
// starts the store empty; load errors are logged and swallowed.
func openFileStore[M Record](dir string, kind Kind) (*fileStore[M], error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}

	s := &fileStore[M]{
		path:  filepath.Join(dir, FileName(kind)),
		kind:  kind,
		items: make(map[string]M),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("memory file unreadable, starting empty", "kind", kind, "path", s.path, "error", err)
		}
		return s, nil
	}

	var doc fileDoc[M]
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("memory file corrupt, starting empty", "kind", kind, "path", s.path, "error", err)
		return s, nil
	}
	for _, m := range doc.Memories {
		if id := m.Meta().ID; id != "" {
			s.items[id] = m
		}
	}
	return s, nil
}

// Add stamps the envelope (id, type, timestamps) and persists.
func (s *fileStore[M]) Add(m M) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := m.Meta()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Type = s.kind
	now := nowMillis()
	b.CreatedAt = now
	b.UpdatedAt = now

	s.items[b.ID] = m
	if err := s.persistLocked(); err != nil {
		delete(s.items, b.ID)
		return "", err
	}
	return b.ID, nil
}

// Get returns the memory with the given id, or false.
func (s *fileStore[M]) Get(id string) (M, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.items[id]
	return m, ok
}

// All returns every memory, most recently updated first.
func (s *fileStore[M]) All() []M {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allLocked()
}

func (s *fileStore[M]) allLocked() []M {
	out := make([]M, 0, len(s.items))
	for _, m := range s.items {
		out = append(out, m)
	}
	sortByRecency(out)
	return out
}

// Update applies mutate to the memory with the given id, bumps updatedAt,
// and persists. Returns false if the id does not exist.
func (s *fileStore[M]) Update(id string, mutate func(M)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.items[id]
	if !ok {
		return false, nil
	}
	mutate(m)
	b := m.Meta()
	b.ID = id // id and type are not updatable
	b.Type = s.kind
	b.UpdatedAt = nowMillis()
	return true, s.persistLocked()
}

// Delete removes the memory with the given id and persists.
// Returns false if the id does not exist.
func (s *fileStore[M]) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.items[id]
	if !ok {
		return false, nil
	}
	delete(s.items, id)
	if err := s.persistLocked(); err != nil {
		s.items[id] = m
		return false, err
	}
	return true, nil
}

// Count returns the number of stored memories.
func (s *fileStore[M]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Path returns the backing file path.
func (s *fileStore[M]) Path() string { return s.path }

// persistLocked rewrites the full snapshot. Memories are ordered by
// creation time then id so unchanged stores serialize identically.
func (s *fileStore[M]) persistLocked() error {
	memories := make([]M, 0, len(s.items))
	for _, m := range s.items {
		memories = append(memories, m)
	}
	sort.Slice(memories, func(i, j int) bool {
		a, b := memories[i].Meta(), memories[j].Meta()
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})

	data, err := json.MarshalIndent(fileDoc[M]{Memories: memories}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", s.kind, err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// sortByRecency orders memories by updatedAt descending, id as tiebreak.
func sortByRecency[M Record](ms []M) {
	sort.Slice(ms, func(i, j int) bool {
		a, b := ms[i].Meta(), ms[j].Meta()
		if a.UpdatedAt != b.UpdatedAt {
			return a.UpdatedAt > b.UpdatedAt
		}
		return a.ID < b.ID
	})
}

// truncate applies an optional result limit.
func truncate[M any](ms []M, limit int) []M {
	if limit > 0 && len(ms) > limit {
		return ms[:limit]
	}
	return ms
}
