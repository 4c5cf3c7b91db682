package llm

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  string
		want FailureClass
	}{
		{"chat error 429: Too Many Requests", FailRateLimit},
		{"rate limit exceeded for model", FailRateLimit},
		{"quota exhausted", FailRateLimit},
		{"request timed out after 120s", FailTimeout},
		{"context deadline exceeded", FailTimeout},
		{"chat error 503: service unavailable", FailUpstream},
		{"chat error 500: internal server error", FailUpstream},
		{"model overloaded, try again later", FailUpstream},
		{"chat error 401: Unauthorized", FailAuth},
		{"invalid api key provided", FailAuth},
		{"chat error 400: invalid request body", FailRequest},
		{"maximum context length exceeded", FailRequest},
		{"something inexplicable happened", FailUnknown},
	}
	for _, tt := range tests {
		if got := Classify(errors.New(tt.err)); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.err, got, tt.want)
		}
	}

	if got := Classify(nil); got != FailUnknown {
		t.Errorf("Classify(nil) = %s, want unknown", got)
	}
}

func TestRetryable(t *testing.T) {
	retryable := []FailureClass{FailRateLimit, FailTimeout, FailUpstream}
	for _, c := range retryable {
		if !c.Retryable() {
			t.Errorf("%s should be retryable", c)
		}
	}
	terminal := []FailureClass{FailAuth, FailRequest, FailUnknown}
	for _, c := range terminal {
		if c.Retryable() {
			t.Errorf("%s should not be retryable", c)
		}
	}
}
