// Package memtool exposes memory to tool callers (the LLM tool surface
// and the CLI). Failures come back as human-readable "Error: ..."
// strings rather than errors or panics, so a misbehaving call degrades
// to text the model can read.
package memtool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/picobot/picobot/internal/config"
	"github.com/picobot/picobot/internal/embedding"
	"github.com/picobot/picobot/internal/model"
	"github.com/picobot/picobot/internal/notes"
	"github.com/picobot/picobot/internal/vector"
)

// MaxResults caps one search, whatever the caller asks for.
const MaxResults = 20

const (
	searchThreshold = 0
	searchWeight    = 0.3
	defaultResults  = 10
	// DefaultConfidence applies when Remember gets no confidence.
	DefaultConfidence = 0.7
)

var datedFileRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.md$`)

// VectorStore is the slice of the vector store the tool surface needs;
// *vector.Store satisfies it.
type VectorStore interface {
	Add(ctx context.Context, content string, metadata map[string]any, namespace string, precomputed embedding.Vector) (*model.MemoryItem, error)
	Get(ctx context.Context, id, namespace string) (*model.MemoryItem, error)
	Search(ctx context.Context, query string, topK int, threshold float64, namespace string, priorityWeight float64) ([]vector.Scored, error)
}

// SearchResult is one hit from Search. Path is either "vector/<id>" or
// a memory file name; MemoryID and Score are set for vector hits only.
type SearchResult struct {
	Path     string  `json:"path"`
	Snippet  string  `json:"snippet"`
	MemoryID string  `json:"memory_id,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// Tool is the memory tool surface.
type Tool struct {
	notes   *notes.Store
	vectors VectorStore
	mode    string
}

// New builds a Tool. vectors may be nil unless mode is smart.
func New(noteStore *notes.Store, vectors VectorStore, memoryMode string) *Tool {
	return &Tool{notes: noteStore, vectors: vectors, mode: memoryMode}
}

// Search finds memories matching query. Smart mode searches the vector
// store (a namespace is required); otherwise memory files are scanned
// line by line, MEMORY.md first, then dated files newest-first. The
// second return value is "" on success or an "Error: ..." message.
func (t *Tool) Search(ctx context.Context, query string, maxResults int, namespace string) ([]SearchResult, string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, "Error: search query is empty"
	}
	if maxResults <= 0 {
		maxResults = defaultResults
	}
	if maxResults > MaxResults {
		maxResults = MaxResults
	}

	if t.mode == config.MemorySmart && t.vectors != nil {
		if namespace == "" {
			return nil, "Error: vector search requires a namespace"
		}
		scored, err := t.vectors.Search(ctx, query, maxResults, searchThreshold, namespace, searchWeight)
		if err != nil {
			return nil, fmt.Sprintf("Error: vector search failed: %v", err)
		}
		results := make([]SearchResult, 0, len(scored))
		for _, s := range scored {
			results = append(results, SearchResult{
				Path:     "vector/" + s.Item.ID,
				Snippet:  snippet(s.Item.Content),
				MemoryID: s.Item.ID,
				Score:    s.Similarity,
			})
		}
		return results, ""
	}

	return t.searchFiles(query, maxResults), ""
}

// searchFiles scans MEMORY.md then dated files newest-first for lines
// containing the query, case-insensitively.
func (t *Tool) searchFiles(query string, maxResults int) []SearchResult {
	lowered := strings.ToLower(query)
	var results []SearchResult

	scan := func(name, content string) {
		for _, line := range strings.Split(content, "\n") {
			if len(results) >= maxResults {
				return
			}
			if strings.Contains(strings.ToLower(line), lowered) {
				results = append(results, SearchResult{Path: name, Snippet: snippet(line)})
			}
		}
	}

	scan("MEMORY.md", t.notes.ReadLongTerm())
	for _, name := range t.datedFilesNewestFirst() {
		if len(results) >= maxResults {
			break
		}
		b, err := os.ReadFile(filepath.Join(t.notes.Dir(), name))
		if err != nil {
			continue
		}
		scan(name, string(b))
	}
	return results
}

func (t *Tool) datedFilesNewestFirst() []string {
	entries, err := os.ReadDir(t.notes.Dir())
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && datedFileRe.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

// Get reads one memory by path: "vector/<id>" for vector rows, or a
// memory file name ("MEMORY.md", "YYYY-MM-DD.md", optionally prefixed
// with "memory/"). from and lines window the content 1-based when
// positive.
func (t *Tool) Get(ctx context.Context, path, namespace string, from, lines int) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "Error: path is empty"
	}

	if id, ok := strings.CutPrefix(path, "vector/"); ok {
		if t.vectors == nil || t.mode != config.MemorySmart {
			return "Error: vector memory is not enabled"
		}
		if namespace == "" {
			return "Error: vector get requires a namespace"
		}
		item, err := t.vectors.Get(ctx, id, namespace)
		if err != nil {
			return fmt.Sprintf("Error: vector get failed: %v", err)
		}
		if item == nil {
			return fmt.Sprintf("Error: no memory with id %s", id)
		}
		return window(item.Content, from, lines)
	}

	name := strings.TrimPrefix(path, "memory/")
	if name != "MEMORY.md" && !datedFileRe.MatchString(name) {
		return fmt.Sprintf("Error: unsupported path %q", path)
	}
	b, err := os.ReadFile(filepath.Join(t.notes.Dir(), name))
	if err != nil {
		return fmt.Sprintf("Error: cannot read %s", name)
	}
	return window(string(b), from, lines)
}

// Remember stores content long-term. The note always lands in file
// memory; in smart mode it is also added to the vector store with
// importance = confidence, and a vector failure reports partial
// success rather than losing the file write.
func (t *Tool) Remember(ctx context.Context, content string, kind model.NoteKind, namespace, source string, confidence float64) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return "Error: nothing to remember"
	}
	if kind == "" {
		kind = model.NoteRememberedFact
	}
	if !kind.Valid() {
		return fmt.Sprintf("Error: unknown note kind %q", kind)
	}
	if confidence <= 0 {
		confidence = DefaultConfidence
	}
	if confidence > 1 {
		confidence = 1
	}

	if err := t.notes.AppendNote(kind, content, source, confidence); err != nil {
		return fmt.Sprintf("Error: write file memory failed: %v", err)
	}

	if t.mode != config.MemorySmart || t.vectors == nil {
		return "Saved to memory."
	}
	if namespace == "" {
		return "Saved to file memory, but not indexed: no namespace for vector memory."
	}
	meta := map[string]any{"kind": kind.String(), "importance": confidence}
	if source != "" {
		meta["source"] = source
	}
	if _, err := t.vectors.Add(ctx, content, meta, namespace, nil); err != nil {
		return fmt.Sprintf("Saved to file memory, but vector indexing failed: %v", err)
	}
	return "Saved to memory."
}

func snippet(text string) string {
	const max = 200
	collapsed := strings.Join(strings.Fields(text), " ")
	if len(collapsed) <= max {
		return collapsed
	}
	return collapsed[:max] + "..."
}

// window cuts content to 1-based line range [from, from+lines).
func window(content string, from, lines int) string {
	if from <= 0 && lines <= 0 {
		return content
	}
	all := strings.Split(content, "\n")
	if from <= 0 {
		from = 1
	}
	if from > len(all) {
		return ""
	}
	end := len(all)
	if lines > 0 && from-1+lines < end {
		end = from - 1 + lines
	}
	return strings.Join(all[from-1:end], "\n")
}
