package llm

import "strings"

// FailureClass buckets completion errors so the router knows whether a
// retry on the same route can help.
type FailureClass string

const (
	FailRateLimit FailureClass = "rate_limit"
	FailTimeout   FailureClass = "timeout"
	FailUpstream  FailureClass = "upstream"
	FailAuth      FailureClass = "auth"
	FailRequest   FailureClass = "request"
	FailUnknown   FailureClass = "unknown"
)

// Retryable reports whether the same route is worth retrying. Auth and
// request failures are deterministic; unknown failures fail the route so
// the next route gets a chance.
func (c FailureClass) Retryable() bool {
	switch c {
	case FailRateLimit, FailTimeout, FailUpstream:
		return true
	}
	return false
}

// Classify buckets an error by substring match on its text.
func Classify(err error) FailureClass {
	if err == nil {
		return FailUnknown
	}
	msg := strings.ToLower(err.Error())

	switch {
	case contains(msg, "429", "rate limit", "rate_limit", "too many requests", "quota"):
		return FailRateLimit
	case contains(msg, "timeout", "timed out", "deadline exceeded", "context canceled"):
		return FailTimeout
	case contains(msg, "500", "502", "503", "504", "overloaded", "unavailable", "internal server", "bad gateway"):
		return FailUpstream
	case contains(msg, "401", "403", "unauthorized", "forbidden", "api key", "authentication"):
		return FailAuth
	case contains(msg, "400", "invalid", "bad request", "context length", "not found", "404"):
		return FailRequest
	}
	return FailUnknown
}

func contains(msg string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}
