package store

import (
	"log/slog"
	"sort"
	"strings"
)

// matches reports whether needle occurs case-insensitively in any of the
// given fields.
func matches(needle string, fields ...string) bool {
	if needle == "" {
		return true
	}
	needle = strings.ToLower(needle)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// --- Semantic ---

// SemanticStore holds durable facts.
type SemanticStore struct {
	*fileStore[*Semantic]
}

// OpenSemantic opens the semantic store under dir.
func OpenSemantic(dir string) (*SemanticStore, error) {
	fs, err := openFileStore[*Semantic](dir, KindSemantic)
	if err != nil {
		return nil, err
	}
	return &SemanticStore{fs}, nil
}

// SemanticFilter narrows a semantic query; set fields are intersected.
type SemanticFilter struct {
	ConversationID string
	Category       string
	Contains       string
	Limit          int
}

// Query returns matching facts, most recently updated first.
func (s *SemanticStore) Query(f SemanticFilter) []*Semantic {
	var out []*Semantic
	for _, m := range s.All() {
		if f.ConversationID != "" && m.Metadata.ConversationID() != f.ConversationID {
			continue
		}
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		if !matches(f.Contains, m.Fact, m.Content) {
			continue
		}
		out = append(out, m)
	}
	return truncate(out, f.Limit)
}

// --- Episodic ---

// EpisodicStore holds remembered events.
type EpisodicStore struct {
	*fileStore[*Episodic]
}

// OpenEpisodic opens the episodic store under dir.
func OpenEpisodic(dir string) (*EpisodicStore, error) {
	fs, err := openFileStore[*Episodic](dir, KindEpisodic)
	if err != nil {
		return nil, err
	}
	return &EpisodicStore{fs}, nil
}

// EpisodicFilter narrows an episodic query; set fields are intersected.
// Since/Until bound the event timestamp (Unix ms, inclusive).
type EpisodicFilter struct {
	ConversationID string
	Contains       string
	Since          int64
	Until          int64
	Limit          int
}

// Query returns matching events, most recently updated first.
func (s *EpisodicStore) Query(f EpisodicFilter) []*Episodic {
	var out []*Episodic
	for _, m := range s.All() {
		if f.ConversationID != "" && m.Metadata.ConversationID() != f.ConversationID {
			continue
		}
		if f.Since > 0 && m.Timestamp < f.Since {
			continue
		}
		if f.Until > 0 && m.Timestamp > f.Until {
			continue
		}
		if !matches(f.Contains, m.Event, m.Context.What, m.Content) {
			continue
		}
		out = append(out, m)
	}
	return truncate(out, f.Limit)
}

// Link records a bidirectional relation between two episodic memories.
// Returns false if either id is unknown.
func (s *EpisodicStore) Link(a, b string) (bool, error) {
	if _, ok := s.Get(a); !ok {
		return false, nil
	}
	if _, ok := s.Get(b); !ok {
		return false, nil
	}
	if ok, err := s.Update(a, func(m *Episodic) { m.RelatedMemories = appendUnique(m.RelatedMemories, b) }); !ok || err != nil {
		return ok, err
	}
	return s.Update(b, func(m *Episodic) { m.RelatedMemories = appendUnique(m.RelatedMemories, a) })
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// --- Procedural ---

// ProceduralStore holds learned behavior patterns.
type ProceduralStore struct {
	*fileStore[*Procedural]
}

// OpenProcedural opens the procedural store under dir.
func OpenProcedural(dir string) (*ProceduralStore, error) {
	fs, err := openFileStore[*Procedural](dir, KindProcedural)
	if err != nil {
		return nil, err
	}
	return &ProceduralStore{fs}, nil
}

// ProceduralFilter narrows a procedural query; set fields are intersected.
type ProceduralFilter struct {
	ConversationID string
	Contains       string
	MinSuccessRate float64
	Limit          int
}

// Query returns matching patterns, most recently updated first.
func (s *ProceduralStore) Query(f ProceduralFilter) []*Procedural {
	var out []*Procedural
	for _, m := range s.All() {
		if f.ConversationID != "" && m.Metadata.ConversationID() != f.ConversationID {
			continue
		}
		if f.MinSuccessRate > 0 && (m.SuccessRate == nil || *m.SuccessRate < f.MinSuccessRate) {
			continue
		}
		if !matches(f.Contains, m.Pattern, m.Action, m.Trigger, m.Content) {
			continue
		}
		out = append(out, m)
	}
	return truncate(out, f.Limit)
}

// RecordOutcome folds one success/failure observation into the pattern's
// success rate as a running average over uses.
func (s *ProceduralStore) RecordOutcome(id string, success bool) (bool, error) {
	return s.Update(id, func(m *Procedural) {
		observed := 0.0
		if success {
			observed = 1.0
		}
		if m.SuccessRate == nil {
			m.SuccessRate = &observed
			return
		}
		blended := *m.SuccessRate*0.8 + observed*0.2
		m.SuccessRate = &blended
	})
}

// --- Prospective ---

// ProspectiveStore holds future intentions.
type ProspectiveStore struct {
	*fileStore[*Prospective]
}

// OpenProspective opens the prospective store under dir.
func OpenProspective(dir string) (*ProspectiveStore, error) {
	fs, err := openFileStore[*Prospective](dir, KindProspective)
	if err != nil {
		return nil, err
	}
	return &ProspectiveStore{fs}, nil
}

// ProspectiveFilter narrows a prospective query; set fields are intersected.
type ProspectiveFilter struct {
	ConversationID string
	Status         ProspectiveStatus
	Contains       string
	Limit          int
}

// Query returns matching intentions ordered by priority descending, then
// recency.
func (s *ProspectiveStore) Query(f ProspectiveFilter) []*Prospective {
	var out []*Prospective
	for _, m := range s.All() {
		if f.ConversationID != "" && m.Metadata.ConversationID() != f.ConversationID {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if !matches(f.Contains, m.Intention, m.Content) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].UpdatedAt > out[j].UpdatedAt
	})
	return truncate(out, f.Limit)
}

// Due returns pending intentions whose trigger time has passed, highest
// priority first.
func (s *ProspectiveStore) Due(now int64) []*Prospective {
	var out []*Prospective
	for _, m := range s.Query(ProspectiveFilter{Status: StatusPending}) {
		if m.TriggerTime > 0 && m.TriggerTime <= now {
			out = append(out, m)
		}
	}
	return out
}

// Complete marks an intention completed.
func (s *ProspectiveStore) Complete(id string) (bool, error) {
	return s.Update(id, func(m *Prospective) { m.Status = StatusCompleted })
}

// Cancel marks an intention cancelled.
func (s *ProspectiveStore) Cancel(id string) (bool, error) {
	return s.Update(id, func(m *Prospective) { m.Status = StatusCancelled })
}

// --- Emotional ---

// EmotionalStore holds emotional state records.
type EmotionalStore struct {
	*fileStore[*Emotional]
}

// OpenEmotional opens the emotional store under dir.
func OpenEmotional(dir string) (*EmotionalStore, error) {
	fs, err := openFileStore[*Emotional](dir, KindEmotional)
	if err != nil {
		return nil, err
	}
	return &EmotionalStore{fs}, nil
}

// EmotionalFilter narrows an emotional query; set fields are intersected.
// MinIntensity is a floor: "medium" matches medium and high.
type EmotionalFilter struct {
	ConversationID string
	Emotion        string
	MinIntensity   Intensity
	Since          int64
	Until          int64
	Limit          int
}

// Query returns matching emotions ordered by intensity descending, then
// recency.
func (s *EmotionalStore) Query(f EmotionalFilter) []*Emotional {
	var out []*Emotional
	for _, m := range s.All() {
		if f.ConversationID != "" && m.Metadata.ConversationID() != f.ConversationID {
			continue
		}
		if f.Emotion != "" && !strings.EqualFold(m.Tag.Emotion, f.Emotion) {
			continue
		}
		if f.MinIntensity != "" && m.Tag.Intensity.rank() < f.MinIntensity.rank() {
			continue
		}
		if f.Since > 0 && m.Tag.Timestamp < f.Since {
			continue
		}
		if f.Until > 0 && m.Tag.Timestamp > f.Until {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Tag.Intensity.rank(), out[j].Tag.Intensity.rank(); ri != rj {
			return ri > rj
		}
		return out[i].UpdatedAt > out[j].UpdatedAt
	})
	return truncate(out, f.Limit)
}

// --- Working ---

// WorkingStore holds short-lived scratch memories with TTLs.
type WorkingStore struct {
	*fileStore[*Working]
}

// OpenWorking opens the working store under dir.
func OpenWorking(dir string) (*WorkingStore, error) {
	fs, err := openFileStore[*Working](dir, KindWorking)
	if err != nil {
		return nil, err
	}
	return &WorkingStore{fs}, nil
}

// All returns live working memories, purging any whose TTL has passed.
func (s *WorkingStore) All() []*Working {
	now := nowMillis()

	s.mu.Lock()
	purged := false
	for id, m := range s.items {
		if m.ExpiresAt > 0 && m.ExpiresAt <= now {
			delete(s.items, id)
			purged = true
		}
	}
	if purged {
		if err := s.persistLocked(); err != nil {
			slog.Warn("working memory purge persist failed", "error", err)
		}
	}
	out := s.allLocked()
	s.mu.Unlock()

	return out
}

// Get returns a live working memory; expired entries read as absent.
func (s *WorkingStore) Get(id string) (*Working, bool) {
	m, ok := s.fileStore.Get(id)
	if !ok {
		return nil, false
	}
	if m.ExpiresAt > 0 && m.ExpiresAt <= nowMillis() {
		if _, err := s.Delete(id); err != nil {
			slog.Warn("working memory expiry delete failed", "id", id, "error", err)
		}
		return nil, false
	}
	return m, true
}
