package store

import (
	"fmt"
	"sort"
)

// Stores aggregates the six typed stores for one agent workspace.
type Stores struct {
	Semantic    *SemanticStore
	Episodic    *EpisodicStore
	Procedural  *ProceduralStore
	Prospective *ProspectiveStore
	Emotional   *EmotionalStore
	Working     *WorkingStore

	dir string
}

// Open opens all six typed stores under the given memory directory,
// creating it if needed.
func Open(dir string) (*Stores, error) {
	s := &Stores{dir: dir}
	var err error
	if s.Semantic, err = OpenSemantic(dir); err != nil {
		return nil, err
	}
	if s.Episodic, err = OpenEpisodic(dir); err != nil {
		return nil, err
	}
	if s.Procedural, err = OpenProcedural(dir); err != nil {
		return nil, err
	}
	if s.Prospective, err = OpenProspective(dir); err != nil {
		return nil, err
	}
	if s.Emotional, err = OpenEmotional(dir); err != nil {
		return nil, err
	}
	if s.Working, err = OpenWorking(dir); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the memory directory the stores live under.
func (s *Stores) Dir() string { return s.dir }

// QueryOptions filters the aggregate view. Set fields are intersected.
// An empty Types slice means all kinds.
type QueryOptions struct {
	Types          []Kind
	ConversationID string
	ChannelSource  string
	Limit          int
}

// Item is one row of the aggregate view: the envelope plus the memory's
// rendered text.
type Item struct {
	Base
	Text string `json:"text"`
}

// Query returns memories across the selected kinds, most recently updated
// first. Unknown kinds in Types are a caller defect and return
// ErrUnknownKind.
func (s *Stores) Query(opts QueryOptions) ([]Item, error) {
	kinds := opts.Types
	if len(kinds) == 0 {
		kinds = Kinds
	}

	var items []Item
	for _, k := range kinds {
		records, err := s.recordsOf(k)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			b := r.Meta()
			if opts.ConversationID != "" && b.Metadata.ConversationID() != opts.ConversationID {
				continue
			}
			if opts.ChannelSource != "" && b.Metadata.ChannelSource() != opts.ChannelSource {
				continue
			}
			items = append(items, Item{Base: *b, Text: r.Render()})
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].UpdatedAt != items[j].UpdatedAt {
			return items[i].UpdatedAt > items[j].UpdatedAt
		}
		return items[i].ID < items[j].ID
	})
	return truncate(items, opts.Limit), nil
}

// Get looks up one memory by kind and id across the aggregate.
func (s *Stores) Get(kind Kind, id string) (Record, bool, error) {
	records, err := s.recordsOf(kind)
	if err != nil {
		return nil, false, err
	}
	for _, r := range records {
		if r.Meta().ID == id {
			return r, true, nil
		}
	}
	return nil, false, nil
}

// Count returns the total number of stored memories across all kinds.
func (s *Stores) Count() int {
	return s.Semantic.Count() + s.Episodic.Count() + s.Procedural.Count() +
		s.Prospective.Count() + s.Emotional.Count() + s.Working.Count()
}

func (s *Stores) recordsOf(k Kind) ([]Record, error) {
	switch k {
	case KindSemantic:
		return asRecords(s.Semantic.All()), nil
	case KindEpisodic:
		return asRecords(s.Episodic.All()), nil
	case KindProcedural:
		return asRecords(s.Procedural.All()), nil
	case KindProspective:
		return asRecords(s.Prospective.All()), nil
	case KindEmotional:
		return asRecords(s.Emotional.All()), nil
	case KindWorking:
		return asRecords(s.Working.All()), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}

func asRecords[M Record](ms []M) []Record {
	out := make([]Record, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}
