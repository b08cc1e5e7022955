package store

import (
	"fmt"
	"strings"
)

// Render formats a semantic memory as "{category}: {fact} (source: {source})",
// omitting empty parts.
func (m *Semantic) Render() string {
	fact := m.Fact
	if fact == "" {
		fact = m.Content
	}
	var b strings.Builder
	if m.Category != "" {
		b.WriteString(m.Category)
		b.WriteString(": ")
	}
	b.WriteString(fact)
	if m.Source != "" {
		fmt.Fprintf(&b, " (source: %s)", m.Source)
	}
	return b.String()
}

// Render formats an episodic memory as the event plus its non-empty
// context fields.
func (m *Episodic) Render() string {
	event := m.Event
	if event == "" {
		event = m.Content
	}
	var parts []string
	if m.Context.Who != "" {
		parts = append(parts, "who: "+m.Context.Who)
	}
	if m.Context.What != "" {
		parts = append(parts, "what: "+m.Context.What)
	}
	if m.Context.Where != "" {
		parts = append(parts, "where: "+m.Context.Where)
	}
	if m.Context.Why != "" {
		parts = append(parts, "why: "+m.Context.Why)
	}
	if m.EmotionalTag != "" {
		parts = append(parts, "feeling: "+m.EmotionalTag)
	}
	if len(parts) == 0 {
		return event
	}
	return event + " (" + strings.Join(parts, "; ") + ")"
}

// Render formats a procedural memory as "pattern -> action", with the
// trigger appended when present.
func (m *Procedural) Render() string {
	pattern := m.Pattern
	if pattern == "" {
		pattern = m.Content
	}
	s := pattern
	if m.Action != "" {
		s += " -> " + m.Action
	}
	if m.Trigger != "" {
		s += " (trigger: " + m.Trigger + ")"
	}
	return s
}

// Render formats a prospective memory as the intention plus status and
// trigger context.
func (m *Prospective) Render() string {
	intention := m.Intention
	if intention == "" {
		intention = m.Content
	}
	s := intention
	if m.Status != "" {
		s += " [" + string(m.Status) + "]"
	}
	if m.TriggerContext != "" {
		s += " (when: " + m.TriggerContext + ")"
	}
	return s
}

// Render formats an emotional memory as "{emotion} ({intensity}): {context}".
func (m *Emotional) Render() string {
	s := m.Tag.Emotion
	if m.Tag.Intensity != "" {
		s += " (" + string(m.Tag.Intensity) + ")"
	}
	ctx := m.Context
	if ctx == "" {
		ctx = m.Content
	}
	if ctx != "" {
		s += ": " + ctx
	}
	return s
}

// Render returns the raw content; working memories are never indexed,
// this only backs the facade view.
func (m *Working) Render() string {
	return m.Content
}
