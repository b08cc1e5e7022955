package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nextlevelbuilder/recall/internal/store"
)

// syncFile is one file the indexer considers during a sync run.
type syncFile struct {
	absPath string
	relPath string // workspace-relative, forward slashes; chunk/file key
	source  string
	kind    store.Kind // memory source only
}

// Sync reconciles on-disk memory files (and session transcripts, when
// enabled) with the index. Unchanged files are skipped via the stored
// mtime watermark unless force is set. A single file's failure is logged
// and skipped; the run continues.
func (m *Manager) Sync(ctx context.Context, reason string, force bool) error {
	start := time.Now()

	files, err := m.enumerate()
	if err != nil {
		return fmt.Errorf("enumerate memory files: %w", err)
	}

	synced, skipped := 0, 0
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.relPath] = true
		changed, err := m.syncFile(ctx, f, force)
		if err != nil {
			slog.Error("memory sync: file failed, continuing", "path", f.relPath, "error", err)
			continue
		}
		if changed {
			synced++
		} else {
			skipped++
		}
	}

	// Drop index state for files that no longer exist on disk.
	if stored, err := m.store.ListFiles(); err == nil {
		for _, meta := range stored {
			if seen[meta.Path] {
				continue
			}
			if err := m.store.DeleteByPath(meta.Path); err != nil {
				slog.Error("memory sync: stale chunk cleanup failed", "path", meta.Path, "error", err)
				continue
			}
			if err := m.store.DeleteFile(meta.Path); err != nil {
				slog.Error("memory sync: stale watermark cleanup failed", "path", meta.Path, "error", err)
			}
		}
	}

	slog.Info("memory sync complete",
		"reason", reason,
		"force", force,
		"synced", synced,
		"skipped", skipped,
		"chunks", m.store.ChunkCount(),
		"took", time.Since(start).Round(time.Millisecond))
	return nil
}

// enumerate lists the files each enabled corpus contributes.
func (m *Manager) enumerate() ([]syncFile, error) {
	var files []syncFile

	if m.sourceEnabled(SourceMemory) {
		entries, err := os.ReadDir(m.memoryDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			kind, ok := store.KindForFile(e.Name())
			if !ok {
				continue
			}
			// Working memory is short-lived and never indexed.
			if kind == store.KindWorking {
				continue
			}
			files = append(files, syncFile{
				absPath: filepath.Join(m.memoryDir, e.Name()),
				relPath: "memory/" + e.Name(),
				source:  SourceMemory,
				kind:    kind,
			})
		}
	}

	if m.sourceEnabled(SourceSessions) {
		entries, err := os.ReadDir(m.sessionsDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			files = append(files, syncFile{
				absPath: filepath.Join(m.sessionsDir, e.Name()),
				relPath: "sessions/" + e.Name(),
				source:  SourceSessions,
			})
		}
	}

	return files, nil
}

// syncFile re-derives the index state for one file. Returns false when the
// mtime watermark matched and the file was skipped.
func (m *Manager) syncFile(ctx context.Context, f syncFile, force bool) (bool, error) {
	info, err := os.Stat(f.absPath)
	if err != nil {
		return false, err
	}
	mtime := info.ModTime().UnixMilli()
	size := info.Size()

	if !force {
		if meta, ok := m.store.GetFileMeta(f.relPath); ok && meta.Mtime == mtime && meta.Size == size {
			return false, nil
		}
	}

	data, err := os.ReadFile(f.absPath)
	if err != nil {
		return false, err
	}

	var chunks []Chunk
	switch f.source {
	case SourceMemory:
		chunks, err = m.memoryChunks(f, data)
	case SourceSessions:
		chunks = m.sessionChunks(f, data)
	default:
		err = fmt.Errorf("unknown source %q", f.source)
	}
	if err != nil {
		return false, err
	}

	m.embedChunks(ctx, chunks)

	if err := m.store.ReplacePathChunks(f.relPath, chunks); err != nil {
		return false, err
	}
	if err := m.store.UpsertFile(FileMeta{
		Path:   f.relPath,
		Source: f.source,
		Hash:   ContentHash(string(data)),
		Mtime:  mtime,
		Size:   size,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// memoryChunks renders each memory in a typed store file into one chunk.
// The position index doubles as start and end line since each memory is a
// single logical unit.
func (m *Manager) memoryChunks(f syncFile, data []byte) ([]Chunk, error) {
	records, err := store.DecodeMemories(f.kind, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.relPath, err)
	}

	chunks := make([]Chunk, 0, len(records))
	for i, rec := range records {
		text := rec.Render()
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			ID:        f.relPath + "#" + rec.Meta().ID + "#" + strconv.Itoa(i),
			Path:      f.relPath,
			Source:    f.source,
			StartLine: i,
			EndLine:   i,
			Hash:      ContentHash(text),
			Text:      text,
		})
	}
	return chunks, nil
}

// sessionChunks splits a transcript at paragraph boundaries, keeping real
// line numbers.
func (m *Manager) sessionChunks(f syncFile, data []byte) []Chunk {
	var chunks []Chunk
	for _, tc := range ChunkText(string(data), 0) {
		chunks = append(chunks, Chunk{
			ID:        f.relPath + "#" + strconv.Itoa(tc.StartLine),
			Path:      f.relPath,
			Source:    f.source,
			StartLine: tc.StartLine,
			EndLine:   tc.EndLine,
			Hash:      ContentHash(tc.Text),
			Text:      tc.Text,
		})
	}
	return chunks
}

// embedChunks fills in vectors for the given chunks, consulting the
// embedding cache first and batching only the misses to the provider.
// Provider failure is soft: affected chunks keep empty embeddings and the
// index stays usable for lexical search.
func (m *Manager) embedChunks(ctx context.Context, chunks []Chunk) {
	p := m.getProvider()
	if p == nil {
		return
	}

	var missTexts []string
	var missIdx []int
	for i := range chunks {
		if cached, ok := m.store.GetCachedEmbedding(chunks[i].Hash, p.Name(), p.Model()); ok {
			chunks[i].Embedding = cached
			chunks[i].Model = p.Model()
			continue
		}
		missTexts = append(missTexts, chunks[i].Text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return
	}

	vectors, err := p.Embed(ctx, missTexts)
	if err != nil {
		slog.Warn("embedding batch failed, indexing without vectors",
			"provider", p.Name(), "count", len(missTexts), "error", err)
		return
	}
	if len(vectors) != len(missTexts) {
		slog.Warn("embedding batch size mismatch, indexing without vectors",
			"got", len(vectors), "want", len(missTexts))
		return
	}

	for j, i := range missIdx {
		if len(vectors[j]) == 0 {
			continue
		}
		chunks[i].Embedding = vectors[j]
		chunks[i].Model = p.Model()
		if err := m.store.CacheEmbedding(chunks[i].Hash, p.Name(), p.Model(), vectors[j]); err != nil {
			slog.Warn("embedding cache write failed", "error", err)
		}
	}
}
