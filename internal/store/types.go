// Package store implements the typed memory stores: six durable,
// JSON-file-backed collections (semantic, episodic, procedural,
// prospective, emotional, working) plus a facade that queries them
// as one surface. Each store owns exclusive write access to its
// backing file; every mutation rewrites the full snapshot.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies one of the six memory kinds.
type Kind string

const (
	KindSemantic    Kind = "semantic"
	KindEpisodic    Kind = "episodic"
	KindProcedural  Kind = "procedural"
	KindProspective Kind = "prospective"
	KindEmotional   Kind = "emotional"
	KindWorking     Kind = "working"
)

// Kinds lists all memory kinds in canonical order.
var Kinds = []Kind{KindSemantic, KindEpisodic, KindProcedural, KindProspective, KindEmotional, KindWorking}

// ErrUnknownKind indicates a caller asked for a memory kind that does not
// exist. This is a programmer error and the one failure class that
// propagates instead of degrading.
var ErrUnknownKind = errors.New("unknown memory kind")

// Metadata is an open key-value map attached to every memory. A small set
// of reserved keys is pulled into typed accessors; the rest is opaque.
type Metadata map[string]any

const (
	metaConversationID = "conversationId"
	metaChannelSource  = "channelSource"
)

// ConversationID returns the reserved conversationId key, if set.
func (m Metadata) ConversationID() string {
	s, _ := m[metaConversationID].(string)
	return s
}

// ChannelSource returns the reserved channelSource key, if set.
func (m Metadata) ChannelSource() string {
	s, _ := m[metaChannelSource].(string)
	return s
}

// Base is the unified memory envelope shared by all kinds.
// Timestamps are Unix milliseconds.
type Base struct {
	ID        string   `json:"id"`
	Type      Kind     `json:"type"`
	Content   string   `json:"content,omitempty"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
	Metadata  Metadata `json:"metadata,omitempty"`
}

// Meta returns the envelope; it makes every kind satisfy Record.
func (b *Base) Meta() *Base { return b }

// Record is one memory of any kind.
type Record interface {
	Meta() *Base
	// Render returns the flat searchable text for this memory,
	// used by the indexer and as the facade's content fallback.
	Render() string
}

// Semantic is a durable fact.
type Semantic struct {
	Base
	Fact     string `json:"fact"`
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`
}

// EpisodicContext describes who/what/where/why of an event.
type EpisodicContext struct {
	Who   string `json:"who,omitempty"`
	What  string `json:"what"`
	Where string `json:"where,omitempty"`
	Why   string `json:"why,omitempty"`
}

// Episodic is a remembered event.
type Episodic struct {
	Base
	Event           string          `json:"event"`
	Context         EpisodicContext `json:"context"`
	Timestamp       int64           `json:"timestamp"`
	EmotionalTag    string          `json:"emotionalTag,omitempty"`
	RelatedMemories []string        `json:"relatedMemories,omitempty"`
}

// Procedural is a learned behavior pattern.
type Procedural struct {
	Base
	Pattern     string   `json:"pattern"`
	Action      string   `json:"action"`
	Trigger     string   `json:"trigger,omitempty"`
	SuccessRate *float64 `json:"successRate,omitempty"`
}

// ProspectiveStatus tracks the lifecycle of a future intention.
type ProspectiveStatus string

const (
	StatusPending   ProspectiveStatus = "pending"
	StatusTriggered ProspectiveStatus = "triggered"
	StatusCompleted ProspectiveStatus = "completed"
	StatusCancelled ProspectiveStatus = "cancelled"
)

// Prospective is a future intention ("remember to ...").
type Prospective struct {
	Base
	Intention      string            `json:"intention"`
	TriggerTime    int64             `json:"triggerTime,omitempty"`
	TriggerContext string            `json:"triggerContext,omitempty"`
	Status         ProspectiveStatus `json:"status"`
	Priority       float64           `json:"priority"`
}

// Intensity grades an emotional tag.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// rank orders intensities for floor filtering and sorting.
func (i Intensity) rank() int {
	switch i {
	case IntensityHigh:
		return 3
	case IntensityMedium:
		return 2
	case IntensityLow:
		return 1
	}
	return 0
}

// EmotionTag labels an emotion with intensity at a point in time.
type EmotionTag struct {
	Emotion   string    `json:"emotion"`
	Intensity Intensity `json:"intensity"`
	Timestamp int64     `json:"timestamp"`
}

// Emotional records an emotional state, optionally back-referencing
// another memory (a reference, not ownership).
type Emotional struct {
	Base
	Tag            EmotionTag `json:"tag"`
	TargetMemoryID string     `json:"targetMemoryId,omitempty"`
	Context        string     `json:"context,omitempty"`
}

// Working is short-lived scratch state with a TTL. Working memories are
// excluded from the search index and purged lazily once expired.
type Working struct {
	Base
	ExpiresAt int64 `json:"expiresAt"`
}

// FileName returns the backing file name for a kind.
func FileName(k Kind) string { return string(k) + ".json" }

// KindForFile maps a backing file name back to its kind.
func KindForFile(name string) (Kind, bool) {
	for _, k := range Kinds {
		if FileName(k) == name {
			return k, true
		}
	}
	return "", false
}

// fileDoc is the on-disk shape of every memory file.
type fileDoc[M any] struct {
	Memories []M `json:"memories"`
}

// DecodeMemories parses a memory file's bytes into records of the given
// kind, skipping records that are missing an id or type. Used by the
// indexer, which reads the files but never mutates them.
func DecodeMemories(kind Kind, data []byte) ([]Record, error) {
	switch kind {
	case KindSemantic:
		return decodeAs[*Semantic](data)
	case KindEpisodic:
		return decodeAs[*Episodic](data)
	case KindProcedural:
		return decodeAs[*Procedural](data)
	case KindProspective:
		return decodeAs[*Prospective](data)
	case KindEmotional:
		return decodeAs[*Emotional](data)
	case KindWorking:
		return decodeAs[*Working](data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func decodeAs[M Record](data []byte) ([]Record, error) {
	var doc fileDoc[M]
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(doc.Memories))
	for _, m := range doc.Memories {
		b := m.Meta()
		if b.ID == "" || b.Type == "" {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
