// Package session tracks per-conversation chat history, summary
// watermarks, and history compaction for prompt assembly.
package session

import (
	"sync"

	"github.com/picobot/picobot/internal/model"
)

// Session owns the stored history of one conversation. Callers hold Mu
// from prompt build through the history append so concurrent turns for
// the same session serialize.
type Session struct {
	Mu      sync.Mutex
	history []model.ChatMessage
}

// Append adds messages to the stored history, skipping empty contents.
// The caller must hold Mu.
func (s *Session) Append(msgs ...model.ChatMessage) {
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		s.history = append(s.history, m)
	}
}

// Snapshot returns a copy of the stored history. The caller must hold Mu.
func (s *Session) Snapshot() []model.ChatMessage {
	out := make([]model.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the stored history length. The caller must hold Mu.
func (s *Session) Len() int { return len(s.history) }

// Manager hands out sessions and summary watermarks keyed by session.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	watermarks map[string]int
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		watermarks: make(map[string]int),
	}
}

// Get returns the session for key, creating it on first use.
func (m *Manager) Get(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		s = &Session{}
		m.sessions[key] = s
	}
	return s
}

// Watermark returns how many history entries have already been
// summarized for key.
func (m *Manager) Watermark(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watermarks[key]
}

// AdvanceWatermark raises the watermark for key to n. It never moves a
// watermark backwards, so concurrent summarization tasks cannot undo
// each other's progress.
func (m *Manager) AdvanceWatermark(key string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.watermarks[key] {
		m.watermarks[key] = n
	}
}
