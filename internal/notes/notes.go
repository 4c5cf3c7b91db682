// Package notes implements the human-readable file memory store: a
// sectioned MEMORY.md for long-term notes plus one dated file per day.
package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/picobot/picobot/internal/model"
)

// Character budget handed to the context assembler (≈2000 tokens).
const MaxContextChars = 8000

// MaxExtractedNotesChars bounds the Extracted Notes section before the
// oldest bullet lines are trimmed from the top.
const MaxExtractedNotesChars = 8000

const (
	extractedSectionHeader                = "## Extracted Notes"
	rememberedFactsSectionHeader          = "## Remembered Facts"
	conversationObservationsSectionHeader = "## Conversation Observations"
	userObservationsSectionHeader         = "## User Observations"
	groundedFactsSectionHeader            = "## Grounded Facts"
)

// One writer at a time across all sections and all Store instances in
// the process; interleaved rewrites would corrupt the document.
var memoryFileLock sync.Mutex

// Store reads and appends markdown memory files under
// <workspace>/memory/.
type Store struct {
	workspace  string
	memoryDir  string
	memoryFile string
}

// New creates a Store rooted at workspace, ensuring the memory dir
// exists.
func New(workspace string) (*Store, error) {
	memoryDir := filepath.Join(workspace, "memory")
	if err := os.MkdirAll(memoryDir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}
	return &Store{
		workspace:  workspace,
		memoryDir:  memoryDir,
		memoryFile: filepath.Join(memoryDir, "MEMORY.md"),
	}, nil
}

// Dir returns the memory directory path.
func (s *Store) Dir() string { return s.memoryDir }

// TodayFile returns the path of today's dated notes file.
func (s *Store) TodayFile() string {
	return filepath.Join(s.memoryDir, todayDate()+".md")
}

// ReadToday returns today's notes, or "" when absent.
func (s *Store) ReadToday() string {
	b, err := os.ReadFile(s.TodayFile())
	if err != nil {
		return ""
	}
	return string(b)
}

// ReadLongTerm returns MEMORY.md, or "" when absent.
func (s *Store) ReadLongTerm() string {
	b, err := os.ReadFile(s.memoryFile)
	if err != nil {
		return ""
	}
	return string(b)
}

// MemoryContext blends long-term memory (60% of the budget) with
// today's notes (the remainder), truncating each part at sensible
// boundaries.
func (s *Store) MemoryContext(maxChars int) string {
	var parts []string
	remaining := maxChars

	longTermBudget := int(float64(maxChars) * 0.6)
	if longTerm := s.ReadLongTerm(); longTerm != "" {
		truncated := Truncate(longTerm, longTermBudget)
		parts = append(parts, "## Long-term Memory\n"+truncated)
		remaining -= len(truncated)
		if remaining < 0 {
			remaining = 0
		}
	}

	if today := s.ReadToday(); today != "" && remaining > 100 {
		parts = append(parts, "## Today's Notes\n"+Truncate(today, remaining))
	}

	return strings.Join(parts, "\n\n")
}

// AppendExtractedFacts appends auto-extracted facts to the Extracted
// Notes section, trimming the oldest bullets past the section budget.
func (s *Store) AppendExtractedFacts(facts []string) error {
	today := todayDate()
	entries := make([]string, 0, len(facts))
	for _, f := range facts {
		entries = append(entries, fmt.Sprintf("- [%s] %s", today, f))
	}
	return s.AppendSectionEntries(extractedSectionHeader, entries, MaxExtractedNotesChars)
}

// AppendRememberedFact appends a dated bullet to Remembered Facts.
func (s *Store) AppendRememberedFact(fact string) error {
	return s.appendDatedBullet(rememberedFactsSectionHeader, fact)
}

// AppendConversationObservation appends to Conversation Observations.
func (s *Store) AppendConversationObservation(observation string) error {
	return s.appendDatedBullet(conversationObservationsSectionHeader, observation)
}

// AppendUserObservation appends to User Observations.
func (s *Store) AppendUserObservation(observation string) error {
	return s.appendDatedBullet(userObservationsSectionHeader, observation)
}

// AppendGroundedFact appends to Grounded Facts, recording its source and
// a confidence clamped to [0,1].
func (s *Store) AppendGroundedFact(fact, source string, confidence float64) error {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return nil
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = "unknown"
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	entry := fmt.Sprintf("- [%s] %s (source: %s, confidence: %.2f)", todayDate(), fact, source, confidence)
	return s.AppendSectionEntries(groundedFactsSectionHeader, []string{entry}, 0)
}

// AppendNote routes a note to the section for its kind.
func (s *Store) AppendNote(kind model.NoteKind, content, source string, confidence float64) error {
	switch kind {
	case model.NoteConversationObservation:
		return s.AppendConversationObservation(content)
	case model.NoteUserObservation:
		return s.AppendUserObservation(content)
	case model.NoteGroundedFact:
		return s.AppendGroundedFact(content, source, confidence)
	default:
		return s.AppendRememberedFact(content)
	}
}

func (s *Store) appendDatedBullet(header, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	entry := fmt.Sprintf("- [%s] %s", todayDate(), content)
	return s.AppendSectionEntries(header, []string{entry}, 0)
}

// AppendSectionEntries appends lines to the named section of MEMORY.md,
// creating the section at end-of-file when missing. All other sections
// are preserved byte-for-byte. When maxSectionChars > 0 and the section
// body exceeds it, the oldest lines are dropped from the top until it
// fits. The whole file is rewritten under the process-wide lock.
func (s *Store) AppendSectionEntries(header string, entries []string, maxSectionChars int) error {
	if len(entries) == 0 {
		return nil
	}

	memoryFileLock.Lock()
	defer memoryFileLock.Unlock()

	newLines := strings.Join(entries, "\n")
	existing := s.ReadLongTerm()

	var updated string
	if start := strings.Index(existing, header); start >= 0 {
		afterHeader := start + len(header)
		before := existing[:afterHeader]
		rest := existing[afterHeader:]
		sectionEnd := strings.Index(rest, "\n## ")
		if sectionEnd < 0 {
			sectionEnd = len(rest)
		}
		body := strings.TrimLeft(rest[:sectionEnd], "\n")
		afterSection := rest[sectionEnd:]

		combined := newLines
		if body != "" {
			combined = body + "\n" + newLines
		}
		if maxSectionChars > 0 {
			for len(combined) > maxSectionChars {
				nl := strings.IndexByte(combined, '\n')
				if nl < 0 {
					break
				}
				combined = combined[nl+1:]
			}
		}
		updated = before + "\n" + combined + afterSection
	} else {
		updated = existing
		if updated != "" && !strings.HasSuffix(updated, "\n") {
			updated += "\n"
		}
		updated += "\n" + header + "\n" + newLines + "\n"
	}

	if err := os.WriteFile(s.memoryFile, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write memory file: %w", err)
	}
	return nil
}

func todayDate() string {
	return time.Now().Local().Format("2006-01-02")
}

const truncationMarker = "... (truncated)"

// Truncate shortens content to at most maxChars plus the truncation
// marker, preferring paragraph, sentence, then line breaks past the
// halfway point of the window, falling back to the last space, and
// hard-cutting only as a last resort.
func Truncate(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}

	truncateAt := maxChars - 20
	if truncateAt < 0 {
		truncateAt = 0
	}
	window := content[:truncateAt]
	for _, sep := range []string{"\n\n", ".\n", ". ", "\n"} {
		if pos := strings.LastIndex(window, sep); pos > truncateAt/2 {
			return content[:pos+len(sep)] + "\n" + truncationMarker
		}
	}

	if pos := strings.LastIndexByte(window, ' '); pos > truncateAt/2 {
		return content[:pos] + " " + truncationMarker
	}

	return window + truncationMarker
}
