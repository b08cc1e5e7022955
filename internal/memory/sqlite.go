package memory

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore holds the search index: chunks, their FTS5 mirror, the file
// watermarks for change detection, and the embedding cache. The indexer is
// its only writer.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path
// and initializes the schema with FTS5 support.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("memory index opened", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'memory',
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			hash TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			embedding TEXT NOT NULL DEFAULT '[]',
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_hash ON chunks(hash)`,
		// FTS5 virtual table mirroring chunk identity for lexical queries
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			text,
			id UNINDEXED,
			path UNINDEXED,
			source UNINDEXED,
			start_line UNINDEXED,
			end_line UNINDEXED,
			tokenize='porter unicode61'
		)`,
		// Embedding cache keyed by content hash + provider + model
		`CREATE TABLE IF NOT EXISTS embedding_cache (
			hash TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			embedding TEXT NOT NULL,
			dims INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			PRIMARY KEY (hash, provider, model)
		)`,
		// File watermarks for change detection
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT 'memory',
			hash TEXT NOT NULL,
			mtime INTEGER NOT NULL DEFAULT 0,
			size INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}

	return nil
}

// ReplacePathChunks atomically swaps all chunks (and FTS entries) for one
// path: delete-all then insert-all inside a single transaction, so no
// reader ever observes a mix of old and new generations.
func (s *SQLiteStore) ReplacePathChunks(path string, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chunks_fts WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete fts for %s: %w", path, err)
	}
	if _, err := tx.Exec("DELETE FROM chunks WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", path, err)
	}

	for _, c := range chunks {
		embJSON, err := json.Marshal(c.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		_, err = tx.Exec(`INSERT INTO chunks (id, path, source, start_line, end_line, hash, model, text, embedding, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now'))`,
			c.ID, c.Path, c.Source, c.StartLine, c.EndLine, c.Hash, c.Model, c.Text, string(embJSON))
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
		_, err = tx.Exec(`INSERT INTO chunks_fts (text, id, path, source, start_line, end_line)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.Text, c.ID, c.Path, c.Source, c.StartLine, c.EndLine)
		if err != nil {
			return fmt.Errorf("insert fts %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteByPath removes all chunks (and FTS entries) for a given path.
func (s *SQLiteStore) DeleteByPath(path string) error {
	return s.ReplacePathChunks(path, nil)
}

// ftsCandidate is one raw lexical match before rank normalization.
type ftsCandidate struct {
	Path      string
	Source    string
	StartLine int
	EndLine   int
	Text      string
	Rank      float64 // abs(bm25 rank); lower is better
}

// SearchFTS runs a ranked FTS5 match over the given sources, returning up
// to limit candidates best-first with their raw BM25 ranks. The query must
// already be sanitized.
func (s *SQLiteStore) SearchFTS(match string, sources []string, limit int) ([]ftsCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	where := ""
	args := []interface{}{match}
	if len(sources) > 0 {
		where = " AND source IN (?" + strings.Repeat(",?", len(sources)-1) + ")"
		for _, src := range sources {
			args = append(args, src)
		}
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT path, source, start_line, end_line, text, abs(rank)
		FROM chunks_fts
		WHERE chunks_fts MATCH ?%s
		ORDER BY rank
		LIMIT ?`, where)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var out []ftsCandidate
	for rows.Next() {
		var c ftsCandidate
		if err := rows.Scan(&c.Path, &c.Source, &c.StartLine, &c.EndLine, &c.Text, &c.Rank); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetAllChunks returns all chunks restricted to the given sources (all
// sources if empty), for the in-memory vector pass.
func (s *SQLiteStore) GetAllChunks(sources []string) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, path, source, start_line, end_line, hash, model, text, embedding FROM chunks"
	var args []interface{}
	if len(sources) > 0 {
		query += " WHERE source IN (?" + strings.Repeat(",?", len(sources)-1) + ")"
		for _, src := range sources {
			args = append(args, src)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var embJSON string
		if err := rows.Scan(&c.ID, &c.Path, &c.Source, &c.StartLine, &c.EndLine, &c.Hash, &c.Model, &c.Text, &embJSON); err != nil {
			continue
		}
		json.Unmarshal([]byte(embJSON), &c.Embedding)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetChunksByPath returns all chunks for a specific file path.
func (s *SQLiteStore) GetChunksByPath(path string) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, path, source, start_line, end_line, hash, model, text FROM chunks WHERE path = ? ORDER BY start_line", path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Path, &c.Source, &c.StartLine, &c.EndLine, &c.Hash, &c.Model, &c.Text); err != nil {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetCachedEmbedding returns a cached embedding by content hash.
func (s *SQLiteStore) GetCachedEmbedding(contentHash, provider, model string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var embJSON string
	err := s.db.QueryRow("SELECT embedding FROM embedding_cache WHERE hash = ? AND provider = ? AND model = ?",
		contentHash, provider, model).Scan(&embJSON)
	if err != nil {
		return nil, false
	}

	var emb []float32
	if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
		return nil, false
	}
	return emb, true
}

// CacheEmbedding stores an embedding in the cache.
func (s *SQLiteStore) CacheEmbedding(contentHash, provider, model string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	embJSON, _ := json.Marshal(embedding)
	_, err := s.db.Exec(`INSERT OR REPLACE INTO embedding_cache (hash, provider, model, embedding, dims, updated_at)
		VALUES (?, ?, ?, ?, ?, strftime('%s','now'))`,
		contentHash, provider, model, string(embJSON), len(embedding))
	return err
}

// GetFileMeta returns the stored watermark for a file path, or false if
// the file has never been indexed.
func (s *SQLiteStore) GetFileMeta(path string) (FileMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m FileMeta
	err := s.db.QueryRow("SELECT path, source, hash, mtime, size FROM files WHERE path = ?", path).
		Scan(&m.Path, &m.Source, &m.Hash, &m.Mtime, &m.Size)
	if err != nil {
		return FileMeta{}, false
	}
	return m, true
}

// ListFiles returns all stored file watermarks.
func (s *SQLiteStore) ListFiles() ([]FileMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT path, source, hash, mtime, size FROM files")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FileMeta
	for rows.Next() {
		var m FileMeta
		if err := rows.Scan(&m.Path, &m.Source, &m.Hash, &m.Mtime, &m.Size); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertFile stores or updates a file watermark.
func (s *SQLiteStore) UpsertFile(m FileMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO files (path, source, hash, mtime, size) VALUES (?, ?, ?, ?, ?)`,
		m.Path, m.Source, m.Hash, m.Mtime, m.Size)
	return err
}

// DeleteFile removes a file watermark.
func (s *SQLiteStore) DeleteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM files WHERE path = ?", path)
	return err
}

// ChunkCount returns the number of stored chunks.
func (s *SQLiteStore) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&count)
	return count
}

// FileCount returns the number of indexed files.
func (s *SQLiteStore) FileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count)
	return count
}

// Close closes the SQLite database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ContentHash returns a short SHA256 digest of text content.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h[:16])
}
