package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSemanticStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSemantic(dir)
	if err != nil {
		t.Fatalf("OpenSemantic: %v", err)
	}

	id, err := s.Add(&Semantic{
		Fact:     "User prefers dark mode",
		Category: "preferences",
		Source:   "conversation",
		Base:     Base{Metadata: Metadata{"conversationId": "conv-1"}},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == "" {
		t.Fatal("Add returned empty id")
	}

	m, ok := s.Get(id)
	if !ok {
		t.Fatal("Get: not found")
	}
	if m.Fact != "User prefers dark mode" || m.Category != "preferences" || m.Source != "conversation" {
		t.Errorf("fields = %+v", m)
	}
	if m.Type != KindSemantic {
		t.Errorf("type = %q, want %q", m.Type, KindSemantic)
	}
	if m.CreatedAt == 0 || m.UpdatedAt == 0 {
		t.Errorf("timestamps not stamped: created=%d updated=%d", m.CreatedAt, m.UpdatedAt)
	}
	if m.Metadata.ConversationID() != "conv-1" {
		t.Errorf("conversationId = %q", m.Metadata.ConversationID())
	}
}

func TestSemanticStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSemantic(dir)
	if err != nil {
		t.Fatalf("OpenSemantic: %v", err)
	}
	id, err := s.Add(&Semantic{Fact: "Go modules were introduced in 1.11"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	reopened, err := OpenSemantic(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	m, ok := reopened.Get(id)
	if !ok {
		t.Fatal("memory lost across reopen")
	}
	if m.Fact != "Go modules were introduced in 1.11" {
		t.Errorf("fact = %q", m.Fact)
	}
}

func TestFileStore_SnapshotIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSemantic(dir)
	if err != nil {
		t.Fatalf("OpenSemantic: %v", err)
	}
	if _, err := s.Add(&Semantic{Fact: "alpha"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(&Semantic{Fact: "beta"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	path := filepath.Join(dir, "semantic.json")
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// Reopen and rewrite with no mutation in between.
	reopened, err := OpenSemantic(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened.mu.Lock()
	err = reopened.persistLocked()
	reopened.mu.Unlock()
	if err != nil {
		t.Fatalf("persist: %v", err)
	}

	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("snapshot bytes changed without mutation")
	}
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "semantic.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := OpenSemantic(dir)
	if err != nil {
		t.Fatalf("OpenSemantic on corrupt file: %v", err)
	}
	if n := s.Count(); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
	// Store must still be writable.
	if _, err := s.Add(&Semantic{Fact: "recovered"}); err != nil {
		t.Fatalf("Add after corrupt load: %v", err)
	}
}

func TestFileStore_UpdateDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSemantic(dir)
	if err != nil {
		t.Fatalf("OpenSemantic: %v", err)
	}
	id, _ := s.Add(&Semantic{Fact: "original"})

	before, _ := s.Get(id)
	created := before.CreatedAt

	ok, err := s.Update(id, func(m *Semantic) { m.Fact = "revised" })
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}
	m, _ := s.Get(id)
	if m.Fact != "revised" {
		t.Errorf("fact = %q", m.Fact)
	}
	if m.CreatedAt != created {
		t.Errorf("createdAt changed on update")
	}
	if m.UpdatedAt < created {
		t.Errorf("updatedAt not bumped")
	}

	ok, err = s.Update("missing", func(m *Semantic) {})
	if err != nil || ok {
		t.Errorf("Update missing: ok=%v err=%v", ok, err)
	}

	ok, err = s.Delete(id)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	if _, found := s.Get(id); found {
		t.Error("memory still present after delete")
	}
	ok, _ = s.Delete(id)
	if ok {
		t.Error("second delete reported true")
	}
}

func TestSemanticStore_QueryFilters(t *testing.T) {
	dir := t.TempDir()
	s, _ := OpenSemantic(dir)

	s.Add(&Semantic{Fact: "likes coffee", Category: "preferences", Base: Base{Metadata: Metadata{"conversationId": "c1"}}})
	s.Add(&Semantic{Fact: "works at Acme", Category: "facts", Base: Base{Metadata: Metadata{"conversationId": "c1"}}})
	s.Add(&Semantic{Fact: "likes tea", Category: "preferences", Base: Base{Metadata: Metadata{"conversationId": "c2"}}})

	got := s.Query(SemanticFilter{Category: "preferences"})
	if len(got) != 2 {
		t.Fatalf("category filter: got %d, want 2", len(got))
	}

	// Filters intersect.
	got = s.Query(SemanticFilter{Category: "preferences", ConversationID: "c1"})
	if len(got) != 1 || got[0].Fact != "likes coffee" {
		t.Fatalf("intersected filter: %+v", got)
	}

	got = s.Query(SemanticFilter{Contains: "ACME"})
	if len(got) != 1 {
		t.Fatalf("substring filter is case-insensitive: got %d", len(got))
	}

	got = s.Query(SemanticFilter{Limit: 1})
	if len(got) != 1 {
		t.Fatalf("limit: got %d", len(got))
	}
}

func TestProspectiveStore_DueAndComplete(t *testing.T) {
	dir := t.TempDir()
	s, _ := OpenProspective(dir)

	now := time.Now().UnixMilli()
	id, err := s.Add(&Prospective{
		Intention:   "remind about standup",
		TriggerTime: now - 1000,
		Status:      StatusPending,
		Priority:    0.8,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Add(&Prospective{Intention: "future thing", TriggerTime: now + 60_000, Status: StatusPending, Priority: 0.2})

	due := s.Due(now)
	if len(due) != 1 || due[0].ID != id {
		t.Fatalf("Due = %+v, want the past-trigger intention", due)
	}

	if ok, err := s.Complete(id); !ok || err != nil {
		t.Fatalf("Complete: ok=%v err=%v", ok, err)
	}
	if due := s.Due(now); len(due) != 0 {
		t.Errorf("completed intention still due: %+v", due)
	}
	m, _ := s.Get(id)
	if m.Status != StatusCompleted {
		t.Errorf("status = %q", m.Status)
	}
}

func TestProspectiveStore_PrioritySort(t *testing.T) {
	dir := t.TempDir()
	s, _ := OpenProspective(dir)

	s.Add(&Prospective{Intention: "low", Status: StatusPending, Priority: 0.1})
	s.Add(&Prospective{Intention: "high", Status: StatusPending, Priority: 0.9})
	s.Add(&Prospective{Intention: "mid", Status: StatusPending, Priority: 0.5})

	got := s.Query(ProspectiveFilter{Status: StatusPending})
	if len(got) != 3 {
		t.Fatalf("got %d results", len(got))
	}
	if got[0].Intention != "high" || got[2].Intention != "low" {
		t.Errorf("priority order wrong: %q, %q, %q", got[0].Intention, got[1].Intention, got[2].Intention)
	}
}

func TestEmotionalStore_IntensityFloor(t *testing.T) {
	dir := t.TempDir()
	s, _ := OpenEmotional(dir)

	s.Add(&Emotional{Tag: EmotionTag{Emotion: "joy", Intensity: IntensityLow}})
	s.Add(&Emotional{Tag: EmotionTag{Emotion: "fear", Intensity: IntensityMedium}})
	s.Add(&Emotional{Tag: EmotionTag{Emotion: "awe", Intensity: IntensityHigh}})

	got := s.Query(EmotionalFilter{MinIntensity: IntensityMedium})
	if len(got) != 2 {
		t.Fatalf("intensity floor: got %d, want 2", len(got))
	}
	if got[0].Tag.Intensity != IntensityHigh {
		t.Errorf("sort by intensity: first = %q", got[0].Tag.Intensity)
	}
}

func TestEpisodicStore_TimeRangeAndLinks(t *testing.T) {
	dir := t.TempDir()
	s, _ := OpenEpisodic(dir)

	a, _ := s.Add(&Episodic{Event: "deployed v1", Timestamp: 1000})
	b, _ := s.Add(&Episodic{Event: "rollback", Timestamp: 2000})
	s.Add(&Episodic{Event: "postmortem", Timestamp: 3000})

	got := s.Query(EpisodicFilter{Since: 1500, Until: 2500})
	if len(got) != 1 || got[0].Event != "rollback" {
		t.Fatalf("time range: %+v", got)
	}

	ok, err := s.Link(a, b)
	if !ok || err != nil {
		t.Fatalf("Link: ok=%v err=%v", ok, err)
	}
	ma, _ := s.Get(a)
	mb, _ := s.Get(b)
	if len(ma.RelatedMemories) != 1 || ma.RelatedMemories[0] != b {
		t.Errorf("a.related = %v", ma.RelatedMemories)
	}
	if len(mb.RelatedMemories) != 1 || mb.RelatedMemories[0] != a {
		t.Errorf("b.related = %v", mb.RelatedMemories)
	}

	// Linking twice stays deduplicated.
	s.Link(a, b)
	ma, _ = s.Get(a)
	if len(ma.RelatedMemories) != 1 {
		t.Errorf("duplicate link: %v", ma.RelatedMemories)
	}
}

func TestWorkingStore_Expiry(t *testing.T) {
	dir := t.TempDir()
	s, _ := OpenWorking(dir)

	now := time.Now().UnixMilli()
	expired, _ := s.Add(&Working{Base: Base{Content: "stale"}, ExpiresAt: now - 1})
	live, _ := s.Add(&Working{Base: Base{Content: "fresh"}, ExpiresAt: now + 60_000})

	if _, ok := s.Get(expired); ok {
		t.Error("expired memory still readable")
	}
	if _, ok := s.Get(live); !ok {
		t.Error("live memory missing")
	}

	all := s.All()
	if len(all) != 1 || all[0].Content != "fresh" {
		t.Errorf("All after purge = %+v", all)
	}

	// Purge is durable: reopen must not resurrect the expired entry.
	reopened, _ := OpenWorking(dir)
	if n := reopened.Count(); n != 1 {
		t.Errorf("reopened count = %d, want 1", n)
	}
}

func TestFacade_QueryAcrossKinds(t *testing.T) {
	dir := t.TempDir()
	stores, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	stores.Semantic.Add(&Semantic{Fact: "fact one", Base: Base{Metadata: Metadata{"conversationId": "c1", "channelSource": "slack"}}})
	stores.Episodic.Add(&Episodic{Event: "event one", Base: Base{Metadata: Metadata{"conversationId": "c1"}}})
	stores.Procedural.Add(&Procedural{Pattern: "pattern one", Action: "do it"})

	items, err := stores.Query(QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("all kinds: got %d, want 3", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].UpdatedAt > items[i-1].UpdatedAt {
			t.Error("results not sorted by recency")
		}
	}

	items, _ = stores.Query(QueryOptions{Types: []Kind{KindSemantic, KindEpisodic}, ConversationID: "c1"})
	if len(items) != 2 {
		t.Fatalf("type+conversation filter: got %d, want 2", len(items))
	}

	items, _ = stores.Query(QueryOptions{ChannelSource: "slack"})
	if len(items) != 1 || items[0].Type != KindSemantic {
		t.Fatalf("channel filter: %+v", items)
	}

	items, _ = stores.Query(QueryOptions{Limit: 1})
	if len(items) != 1 {
		t.Fatalf("limit: got %d", len(items))
	}

	if _, err := stores.Query(QueryOptions{Types: []Kind{"imaginary"}}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown kind error = %v", err)
	}
}

func TestRender(t *testing.T) {
	sem := &Semantic{Fact: "User prefers dark mode", Category: "preferences", Source: "chat"}
	if got, want := sem.Render(), "preferences: User prefers dark mode (source: chat)"; got != want {
		t.Errorf("semantic render = %q, want %q", got, want)
	}

	sem = &Semantic{Fact: "bare fact"}
	if got := sem.Render(); got != "bare fact" {
		t.Errorf("semantic render without extras = %q", got)
	}

	epi := &Episodic{Event: "met Dana", Context: EpisodicContext{Who: "Dana", What: "lunch"}}
	if got, want := epi.Render(), "met Dana (who: Dana; what: lunch)"; got != want {
		t.Errorf("episodic render = %q, want %q", got, want)
	}

	emo := &Emotional{Tag: EmotionTag{Emotion: "excitement", Intensity: IntensityHigh}, Context: "launch day"}
	if got, want := emo.Render(), "excitement (high): launch day"; got != want {
		t.Errorf("emotional render = %q, want %q", got, want)
	}

	proc := &Procedural{Pattern: "user asks for summary", Action: "keep it short", Trigger: "long thread"}
	if got, want := proc.Render(), "user asks for summary -> keep it short (trigger: long thread)"; got != want {
		t.Errorf("procedural render = %q, want %q", got, want)
	}
}

func TestDecodeMemories_SkipsInvalid(t *testing.T) {
	data := []byte(`{"memories": [
		{"id": "a1", "type": "semantic", "fact": "kept"},
		{"fact": "no id, dropped"},
		{"id": "a2", "fact": "no type, dropped"}
	]}`)

	records, err := DecodeMemories(KindSemantic, data)
	if err != nil {
		t.Fatalf("DecodeMemories: %v", err)
	}
	if len(records) != 1 || records[0].Meta().ID != "a1" {
		t.Fatalf("records = %+v", records)
	}

	if _, err := DecodeMemories("bogus", data); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown kind = %v", err)
	}
}
