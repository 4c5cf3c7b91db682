package notes

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return s
}

func TestAppendRememberedFactCreatesSection(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendRememberedFact("User likes tea"); err != nil {
		t.Fatalf("append: %v", err)
	}

	content := s.ReadLongTerm()
	if !strings.Contains(content, "## Remembered Facts") {
		t.Error("expected Remembered Facts section")
	}
	if !strings.Contains(content, "User likes tea") {
		t.Error("expected fact in file")
	}
	// Dated bullet format.
	if !strings.Contains(content, "- [") {
		t.Error("expected dated bullet line")
	}
}

func TestAppendPreservesOtherSections(t *testing.T) {
	s := newTestStore(t)

	s.AppendRememberedFact("first fact")
	s.AppendUserObservation("I prefer short answers")
	s.AppendRememberedFact("second fact")

	content := s.ReadLongTerm()
	if !strings.Contains(content, "first fact") || !strings.Contains(content, "second fact") {
		t.Error("expected both facts to survive")
	}
	if !strings.Contains(content, "I prefer short answers") {
		t.Error("expected observation to survive")
	}
	if strings.Count(content, "## Remembered Facts") != 1 {
		t.Error("expected a single Remembered Facts section")
	}
}

func TestAppendGroundedFactFormatsSourceAndConfidence(t *testing.T) {
	s := newTestStore(t)

	s.AppendGroundedFact("Build succeeded in 2m31s", "go build", 0.92)
	s.AppendGroundedFact("Overconfident claim", "", 7.5)

	content := s.ReadLongTerm()
	if !strings.Contains(content, "## Grounded Facts") {
		t.Error("expected Grounded Facts section")
	}
	if !strings.Contains(content, "(source: go build, confidence: 0.92)") {
		t.Errorf("unexpected grounded fact formatting:\n%s", content)
	}
	if !strings.Contains(content, "(source: unknown, confidence: 1.00)") {
		t.Error("expected empty source to fall back and confidence to clamp")
	}
}

func TestConcurrentAppendsKeepAllEntries(t *testing.T) {
	s := newTestStore(t)

	const writers = 24
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.AppendExtractedFacts([]string{fmt.Sprintf("fact-%d", i)}); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	content := s.ReadLongTerm()
	for i := 0; i < writers; i++ {
		if !strings.Contains(content, fmt.Sprintf("fact-%d", i)) {
			t.Errorf("fact-%d lost", i)
		}
	}
}

func TestSectionTrimsOldestLines(t *testing.T) {
	s := newTestStore(t)

	long := strings.Repeat("x", 120)
	for i := 0; i < 100; i++ {
		if err := s.AppendSectionEntries("## Extracted Notes",
			[]string{fmt.Sprintf("- line-%03d %s", i, long)}, 2000); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	content := s.ReadLongTerm()
	if strings.Contains(content, "line-000") {
		t.Error("expected oldest line to be trimmed")
	}
	if !strings.Contains(content, "line-099") {
		t.Error("expected newest line to survive")
	}

	// Section body stays within budget.
	start := strings.Index(content, "## Extracted Notes")
	body := content[start+len("## Extracted Notes"):]
	if end := strings.Index(body, "\n## "); end >= 0 {
		body = body[:end]
	}
	if len(strings.TrimLeft(body, "\n")) > 2000 {
		t.Errorf("section body %d chars exceeds budget", len(body))
	}
}

func TestMemoryContextBudget(t *testing.T) {
	s := newTestStore(t)

	s.AppendRememberedFact("The user works on compilers")

	ctxText := s.MemoryContext(4000)
	if !strings.Contains(ctxText, "## Long-term Memory") {
		t.Error("expected long-term header")
	}
	if !strings.Contains(ctxText, "compilers") {
		t.Error("expected fact in context")
	}

	// Empty store yields empty context.
	empty := newTestStore(t)
	if got := empty.MemoryContext(4000); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	const marker = "... (truncated)"

	short := "short text"
	if got := Truncate(short, 100); got != short {
		t.Errorf("short input changed: %q", got)
	}

	para := strings.Repeat("word ", 30) + "\n\n" + strings.Repeat("tail ", 30)
	got := Truncate(para, 170)
	if !strings.HasSuffix(got, marker) {
		t.Errorf("expected marker suffix, got %q", got)
	}

	// Never longer than max + marker, across a range of inputs.
	inputs := []string{
		strings.Repeat("a", 500),
		strings.Repeat("sentence one. ", 40),
		strings.Repeat("line\n", 100),
	}
	for _, in := range inputs {
		for _, max := range []int{50, 100, 333} {
			out := Truncate(in, max)
			if len(out) > max+len(marker) {
				t.Errorf("Truncate(len %d, %d) returned %d chars", len(in), max, len(out))
			}
		}
	}
}

func TestTruncatePrefersBreakPastHalfway(t *testing.T) {
	// A paragraph break early in the window must be ignored in favor of
	// a later sentence break.
	content := "a.\n\n" + strings.Repeat("b", 60) + ". " + strings.Repeat("c", 100)
	got := Truncate(content, 100)
	if strings.Contains(got, "ccccc") == false && len(got) < 40 {
		t.Errorf("truncated too early: %q", got)
	}
}
