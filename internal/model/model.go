// Package model defines the core memory and conversation data types.
package model

import "time"

// MaxContentLength caps the content of a single vector memory row.
const MaxContentLength = 8192

// MemoryItem is one row in the vector memory store. (ID, Namespace)
// uniquely identifies a row; Priority is always clamped to [0,1].
type MemoryItem struct {
	ID          string         `json:"id"`
	Content     string         `json:"content"`
	Embedding   []float32      `json:"-"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	AccessCount int64          `json:"access_count"`
	Priority    float64        `json:"priority"`
	Namespace   string         `json:"namespace"`
}

// Importance reads the importance hint from metadata, defaulting to 0.5.
func (m *MemoryItem) Importance() float64 {
	return MetadataFloat(m.Metadata, "importance", 0.5)
}

// MetadataFloat reads a numeric metadata value, tolerating the types
// encoding/json produces when metadata round-trips through the database.
func MetadataFloat(meta map[string]any, key string, fallback float64) float64 {
	v, ok := meta[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return fallback
	}
}

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NoteKind classifies a long-term note. Each kind maps to one markdown
// section; adding a kind means adding a variant here plus its header.
type NoteKind string

const (
	NoteRememberedFact          NoteKind = "remembered_fact"
	NoteConversationObservation NoteKind = "conversation_observation"
	NoteUserObservation         NoteKind = "user_observation"
	NoteGroundedFact            NoteKind = "grounded_fact"
)

// Valid reports whether k is a known note kind.
func (k NoteKind) Valid() bool {
	switch k {
	case NoteRememberedFact, NoteConversationObservation, NoteUserObservation, NoteGroundedFact:
		return true
	}
	return false
}

func (k NoteKind) String() string { return string(k) }
