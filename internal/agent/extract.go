package agent

import (
	"strings"

	"go.uber.org/zap"

	"github.com/picobot/picobot/internal/config"
)

const (
	minObservationLen = 12
	maxObservationLen = 220
	simpleExtractCap  = 5
)

// observationTriggers are first-person phrases that usually carry a
// durable fact about the user.
var observationTriggers = []string{
	"i prefer",
	"i am",
	"i'm",
	"my name is",
	"i live",
	"i work",
	"i need",
	"i want",
	"remember that",
}

// ExtractUserObservations scans text line by line and keeps trimmed
// lines of reasonable length whose lowercase form contains a trigger
// phrase. Duplicate lines (case-insensitive) are dropped; at most max
// observations are returned.
func ExtractUserObservations(text string, max int) []string {
	if max <= 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < minObservationLen || len(line) > maxObservationLen {
			continue
		}
		lower := strings.ToLower(line)
		if !containsTrigger(lower) {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}

func containsTrigger(lower string) bool {
	for _, t := range observationTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// ingestSimpleExtracts mines the raw user message for observations and
// files them as User Observations. Active in simple and smart modes.
func (a *Agent) ingestSimpleExtracts(userMessage string) {
	if a.memoryMode == config.MemoryNone {
		return
	}
	for _, obs := range ExtractUserObservations(userMessage, simpleExtractCap) {
		if err := a.notes.AppendUserObservation(obs); err != nil {
			a.logger.Warn("record user observation failed", zap.Error(err))
		}
	}
}
