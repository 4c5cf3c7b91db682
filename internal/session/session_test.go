package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/picobot/picobot/internal/model"
)

func TestSessionAppendSkipsEmpty(t *testing.T) {
	s := &Session{}
	s.Mu.Lock()
	s.Append(
		model.ChatMessage{Role: model.RoleUser, Content: "hello"},
		model.ChatMessage{Role: model.RoleAssistant, Content: ""},
		model.ChatMessage{Role: model.RoleAssistant, Content: "hi"},
	)
	got := s.Snapshot()
	s.Mu.Unlock()

	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Content != "hello" || got[1].Content != "hi" {
		t.Errorf("unexpected history: %+v", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := &Session{}
	s.Mu.Lock()
	s.Append(model.ChatMessage{Role: model.RoleUser, Content: "original"})
	snap := s.Snapshot()
	snap[0].Content = "mutated"
	got := s.Snapshot()
	s.Mu.Unlock()

	if got[0].Content != "original" {
		t.Error("snapshot mutation leaked into stored history")
	}
}

func TestManagerReturnsSameSession(t *testing.T) {
	m := NewManager()
	if m.Get("a") != m.Get("a") {
		t.Error("expected the same session for the same key")
	}
	if m.Get("a") == m.Get("b") {
		t.Error("expected distinct sessions for distinct keys")
	}
}

func TestWatermarkMonotonic(t *testing.T) {
	m := NewManager()

	m.AdvanceWatermark("s", 10)
	m.AdvanceWatermark("s", 5)
	if got := m.Watermark("s"); got != 10 {
		t.Errorf("watermark = %d, want 10", got)
	}
	m.AdvanceWatermark("s", 12)
	if got := m.Watermark("s"); got != 12 {
		t.Errorf("watermark = %d, want 12", got)
	}
}

func TestWatermarkConcurrentAdvance(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m.AdvanceWatermark("s", n)
		}(i)
	}
	wg.Wait()

	if got := m.Watermark("s"); got != 50 {
		t.Errorf("watermark = %d, want 50", got)
	}
}

func history(n int) []model.ChatMessage {
	out := make([]model.ChatMessage, n)
	for i := range out {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		out[i] = model.ChatMessage{Role: role, Content: fmt.Sprintf("msg-%d", i)}
	}
	return out
}

func TestCompactorBelowThresholdPassesThrough(t *testing.T) {
	c := NewCompactor(40, nil)

	h := history(39)
	got, compacted := c.Compact(h)
	if compacted {
		t.Error("expected no compaction below threshold")
	}
	if len(got) != 39 {
		t.Errorf("length = %d, want 39", len(got))
	}
}

func TestCompactorKeepsEdges(t *testing.T) {
	c := NewCompactor(40, KeepEdgesPolicy{Keep: 20})

	h := history(60)
	got, compacted := c.Compact(h)
	if !compacted {
		t.Fatal("expected compaction at threshold")
	}
	if len(got) != 2+1+20 {
		t.Fatalf("length = %d, want 23", len(got))
	}
	if got[0].Content != "msg-0" || got[1].Content != "msg-1" {
		t.Errorf("head not preserved: %+v", got[:2])
	}
	if got[2].Content != elisionMarker {
		t.Errorf("expected elision marker, got %q", got[2].Content)
	}
	if got[len(got)-1].Content != "msg-59" {
		t.Errorf("tail not preserved: %q", got[len(got)-1].Content)
	}
}

func TestCompactorNeverMutatesInput(t *testing.T) {
	c := NewCompactor(10, KeepEdgesPolicy{Keep: 4})

	h := history(30)
	want := history(30)
	c.Compact(h)
	for i := range h {
		if h[i] != want[i] {
			t.Fatalf("input mutated at %d: %+v", i, h[i])
		}
	}
}
