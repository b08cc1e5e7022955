package memory

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

const (
	vectorPass = 1 << iota
	textPass
)

// candidate accumulates per-chunk scores across the search passes.
type candidate struct {
	path      string
	source    string
	startLine int
	endLine   int
	text      string
	score     float64
	passes    int
}

// Search answers a free-text query against the index. A cold (empty)
// index triggers a sync first, so a fresh workspace never silently
// returns nothing. Vector and lexical passes run when hybrid mode is on;
// a word-overlap fallback covers the fully degraded case.
func (m *Manager) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = m.cfg.MaxResults
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = m.cfg.MinScore
	}

	if m.store.ChunkCount() == 0 {
		_, err, _ := m.coldSync.Do("cold-start", func() (interface{}, error) {
			return nil, m.Sync(ctx, "cold-start", false)
		})
		if err != nil {
			slog.Warn("cold-start sync failed, searching anyway", "error", err)
		}
	}

	// Query embedding is best-effort; absence degrades to lexical-only.
	var queryVec []float32
	if p := m.getProvider(); p != nil && m.cfg.Hybrid {
		vectors, err := p.Embed(ctx, []string{query})
		if err != nil {
			slog.Warn("query embedding failed, lexical only", "error", err)
		} else if len(vectors) > 0 && len(vectors[0]) > 0 {
			queryVec = vectors[0]
		}
	}

	merged := make(map[string]*candidate)
	mergeKey := func(path string, start, end int) string {
		return path + "\x00" + strconv.Itoa(start) + "\x00" + strconv.Itoa(end)
	}

	// Vector pass: cosine similarity over stored embeddings.
	if m.cfg.Hybrid && queryVec != nil {
		chunks, err := m.store.GetAllChunks(m.cfg.Sources)
		if err != nil {
			slog.Warn("vector pass unavailable", "error", err)
		} else {
			for _, c := range chunks {
				if len(c.Embedding) == 0 {
					continue
				}
				if !m.conversationMatch(c.Path, c.Source, opts.ConversationKey) {
					continue
				}
				sim := CosineSimilarity(queryVec, c.Embedding)
				if sim < minScore || sim <= 0 {
					continue
				}
				k := mergeKey(c.Path, c.StartLine, c.EndLine)
				merged[k] = &candidate{
					path:      c.Path,
					source:    c.Source,
					startLine: c.StartLine,
					endLine:   c.EndLine,
					text:      c.Text,
					score:     sim * m.cfg.VectorWeight,
					passes:    vectorPass,
				}
			}
		}
	}

	// Lexical pass: ranked FTS over the candidate window, ranks
	// normalized so the worst observed candidate scores 0 and the best 1.
	if m.cfg.Hybrid {
		limit := maxResults * m.cfg.CandidateMultiplier
		fts, err := m.store.SearchFTS(sanitizeFTSMatch(query), m.cfg.Sources, limit)
		if err != nil {
			// FTS unavailable (e.g. extension missing) is soft.
			slog.Warn("lexical pass unavailable", "error", err)
			fts = nil
		}
		for i, c := range fts {
			if !m.conversationMatch(c.Path, c.Source, opts.ConversationKey) {
				continue
			}
			textScore := normalizeRank(i, len(fts))
			k := mergeKey(c.Path, c.StartLine, c.EndLine)
			if existing, ok := merged[k]; ok {
				existing.score += textScore * m.cfg.TextWeight
				existing.passes |= textPass
			} else {
				merged[k] = &candidate{
					path:      c.Path,
					source:    c.Source,
					startLine: c.StartLine,
					endLine:   c.EndLine,
					text:      c.Text,
					score:     textScore * m.cfg.TextWeight,
					passes:    textPass,
				}
			}
		}
	}

	results := make([]*candidate, 0, len(merged))
	for _, c := range merged {
		// Single-pass candidates carry only their own weighted score and
		// must still clear the threshold; dual-pass candidates already
		// passed the vector filter.
		if c.passes != vectorPass|textPass && c.score < minScore {
			continue
		}
		results = append(results, c)
	}

	// Fallback: no embedding and nothing from hybrid, use naive word
	// overlap so an exact phrase in memory is still findable.
	if len(results) == 0 && queryVec == nil {
		results = m.overlapFallback(query, minScore, opts.ConversationKey)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].path != results[j].path {
			return results[i].path < results[j].path
		}
		return results[i].startLine < results[j].startLine
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	out := make([]SearchResult, len(results))
	for i, c := range results {
		out[i] = SearchResult{
			Path:      c.path,
			StartLine: c.startLine,
			EndLine:   c.endLine,
			Score:     c.score,
			Snippet:   makeSnippet(c.text, query),
			Source:    c.source,
		}
	}
	return out, nil
}

// overlapFallback scores chunks by matchedQueryWords / totalQueryWords.
func (m *Manager) overlapFallback(query string, minScore float64, conversationKey string) []*candidate {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil
	}

	chunks, err := m.store.GetAllChunks(m.cfg.Sources)
	if err != nil {
		slog.Warn("fallback scan unavailable", "error", err)
		return nil
	}

	var out []*candidate
	for _, c := range chunks {
		if !m.conversationMatch(c.Path, c.Source, conversationKey) {
			continue
		}
		lower := strings.ToLower(c.Text)
		matchedWords := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				matchedWords++
			}
		}
		if matchedWords == 0 {
			continue
		}
		score := float64(matchedWords) / float64(len(words))
		if score < minScore {
			continue
		}
		out = append(out, &candidate{
			path:      c.Path,
			source:    c.Source,
			startLine: c.StartLine,
			endLine:   c.EndLine,
			text:      c.Text,
			score:     score,
		})
	}
	return out
}

// conversationMatch restricts the sessions corpus to one conversation's
// transcript; memory chunks always pass.
func (m *Manager) conversationMatch(path, source, conversationKey string) bool {
	if conversationKey == "" || source != SourceSessions {
		return true
	}
	return strings.HasPrefix(path, "sessions/"+conversationKey)
}

// normalizeRank maps a candidate's position in the rank-ordered FTS list
// to [0,1]: best observed rank scores 1, worst scores 0. A lone candidate
// scores 1.
func normalizeRank(position, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(position)/float64(total-1)
}

// sanitizeFTSMatch turns arbitrary user text into a safe FTS5 MATCH
// expression: each whitespace-delimited token becomes a quoted literal
// phrase (internal quotes doubled), and multiple tokens AND together.
func sanitizeFTSMatch(query string) string {
	tokens := strings.Fields(query)
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		quoted = append(quoted, `"`+strings.ReplaceAll(tok, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}
