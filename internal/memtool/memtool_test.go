package memtool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/picobot/picobot/internal/config"
	"github.com/picobot/picobot/internal/embedding"
	"github.com/picobot/picobot/internal/model"
	"github.com/picobot/picobot/internal/notes"
	"github.com/picobot/picobot/internal/vector"
)

type fakeVectors struct {
	items     map[string]*model.MemoryItem
	scored    []vector.Scored
	searchErr error
	addErr    error
	added     int
}

func (f *fakeVectors) Add(_ context.Context, content string, metadata map[string]any, namespace string, _ embedding.Vector) (*model.MemoryItem, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added++
	return &model.MemoryItem{ID: "new", Content: content, Metadata: metadata, Namespace: namespace}, nil
}

func (f *fakeVectors) Get(_ context.Context, id, _ string) (*model.MemoryItem, error) {
	return f.items[id], nil
}

func (f *fakeVectors) Search(_ context.Context, _ string, _ int, _ float64, _ string, _ float64) ([]vector.Scored, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.scored, nil
}

func newNotes(t *testing.T) *notes.Store {
	t.Helper()
	s, err := notes.New(t.TempDir())
	if err != nil {
		t.Fatalf("notes store: %v", err)
	}
	return s
}

func TestSearchSimpleModeScansFiles(t *testing.T) {
	ns := newNotes(t)
	ns.AppendRememberedFact("User keeps bees in the garden")
	tool := New(ns, nil, config.MemorySimple)

	results, errMsg := tool.Search(context.Background(), "BEES", 10, "")
	if errMsg != "" {
		t.Fatalf("unexpected error: %s", errMsg)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "MEMORY.md" {
		t.Errorf("path = %q", results[0].Path)
	}
	if !strings.Contains(results[0].Snippet, "bees") {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
}

func TestSearchSimpleModeScansDatedFiles(t *testing.T) {
	ns := newNotes(t)
	old := filepath.Join(ns.Dir(), "2020-01-01.md")
	if err := os.WriteFile(old, []byte("ancient beekeeping note\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := New(ns, nil, config.MemorySimple)

	results, errMsg := tool.Search(context.Background(), "beekeeping", 10, "")
	if errMsg != "" {
		t.Fatalf("unexpected error: %s", errMsg)
	}
	if len(results) != 1 || results[0].Path != "2020-01-01.md" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchSmartModeRequiresNamespace(t *testing.T) {
	tool := New(newNotes(t), &fakeVectors{}, config.MemorySmart)

	_, errMsg := tool.Search(context.Background(), "anything", 5, "")
	if !strings.HasPrefix(errMsg, "Error:") {
		t.Errorf("expected Error message, got %q", errMsg)
	}
}

func TestSearchSmartModeVectorResults(t *testing.T) {
	vecs := &fakeVectors{scored: []vector.Scored{
		{Item: model.MemoryItem{ID: "01ABC", Content: "User plays  the cello"}, Similarity: 0.83},
	}}
	tool := New(newNotes(t), vecs, config.MemorySmart)

	results, errMsg := tool.Search(context.Background(), "music", 5, "cli_42")
	if errMsg != "" {
		t.Fatalf("unexpected error: %s", errMsg)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Path != "vector/01ABC" || r.MemoryID != "01ABC" {
		t.Errorf("result = %+v", r)
	}
	if r.Score != 0.83 {
		t.Errorf("score = %f", r.Score)
	}
	if r.Snippet != "User plays the cello" {
		t.Errorf("snippet = %q", r.Snippet)
	}
}

func TestSearchVectorFailureIsErrorString(t *testing.T) {
	vecs := &fakeVectors{searchErr: errors.New("db locked")}
	tool := New(newNotes(t), vecs, config.MemorySmart)

	_, errMsg := tool.Search(context.Background(), "q", 5, "cli_42")
	if !strings.HasPrefix(errMsg, "Error:") {
		t.Errorf("expected Error message, got %q", errMsg)
	}
}

func TestGetVectorItem(t *testing.T) {
	vecs := &fakeVectors{items: map[string]*model.MemoryItem{
		"01ABC": {ID: "01ABC", Content: "line one\nline two\nline three"},
	}}
	tool := New(newNotes(t), vecs, config.MemorySmart)

	got := tool.Get(context.Background(), "vector/01ABC", "cli_42", 0, 0)
	if got != "line one\nline two\nline three" {
		t.Errorf("content = %q", got)
	}

	got = tool.Get(context.Background(), "vector/01ABC", "cli_42", 2, 1)
	if got != "line two" {
		t.Errorf("windowed content = %q", got)
	}

	got = tool.Get(context.Background(), "vector/missing", "cli_42", 0, 0)
	if !strings.HasPrefix(got, "Error:") {
		t.Errorf("expected Error message, got %q", got)
	}
}

func TestGetMemoryFile(t *testing.T) {
	ns := newNotes(t)
	ns.AppendRememberedFact("User has a dog named Pixel")
	tool := New(ns, nil, config.MemorySimple)

	got := tool.Get(context.Background(), "MEMORY.md", "", 0, 0)
	if !strings.Contains(got, "Pixel") {
		t.Errorf("content = %q", got)
	}
	// memory/ prefix is accepted.
	got = tool.Get(context.Background(), "memory/MEMORY.md", "", 0, 0)
	if !strings.Contains(got, "Pixel") {
		t.Errorf("prefixed content = %q", got)
	}
}

func TestGetRejectsArbitraryPaths(t *testing.T) {
	tool := New(newNotes(t), nil, config.MemorySimple)

	for _, path := range []string{"../etc/passwd", "notes.txt", "memory/../../secret"} {
		if got := tool.Get(context.Background(), path, "", 0, 0); !strings.HasPrefix(got, "Error:") {
			t.Errorf("Get(%q) = %q, expected Error message", path, got)
		}
	}
}

func TestRememberSimpleMode(t *testing.T) {
	ns := newNotes(t)
	tool := New(ns, nil, config.MemorySimple)

	msg := tool.Remember(context.Background(), "User likes tea", "", "", "", 0)
	if msg != "Saved to memory." {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(ns.ReadLongTerm(), "User likes tea") {
		t.Error("fact missing from file memory")
	}
}

func TestRememberSmartModeIndexes(t *testing.T) {
	vecs := &fakeVectors{}
	tool := New(newNotes(t), vecs, config.MemorySmart)

	msg := tool.Remember(context.Background(), "User likes tea", model.NoteRememberedFact, "cli_42", "chat", 0.9)
	if msg != "Saved to memory." {
		t.Errorf("message = %q", msg)
	}
	if vecs.added != 1 {
		t.Errorf("vector adds = %d, want 1", vecs.added)
	}
}

func TestRememberPartialSuccess(t *testing.T) {
	ns := newNotes(t)
	vecs := &fakeVectors{addErr: errors.New("db locked")}
	tool := New(ns, vecs, config.MemorySmart)

	msg := tool.Remember(context.Background(), "User likes tea", "", "cli_42", "", 0)
	if !strings.Contains(msg, "vector indexing failed") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(ns.ReadLongTerm(), "User likes tea") {
		t.Error("file write must survive vector failure")
	}

	// Missing namespace: file write succeeds, indexing is skipped.
	msg = tool.Remember(context.Background(), "Another fact to keep", "", "", "", 0)
	if !strings.Contains(msg, "not indexed") {
		t.Errorf("message = %q", msg)
	}
}

func TestRememberRejectsUnknownKind(t *testing.T) {
	tool := New(newNotes(t), nil, config.MemorySimple)

	msg := tool.Remember(context.Background(), "content", model.NoteKind("opinion"), "", "", 0)
	if !strings.HasPrefix(msg, "Error:") {
		t.Errorf("message = %q", msg)
	}
}
