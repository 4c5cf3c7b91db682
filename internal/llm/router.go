package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/picobot/picobot/internal/model"
)

const (
	// maxRetries is per route, on top of the initial attempt.
	maxRetries = 2
	// backoffStep scales the linear backoff between attempts.
	backoffStep = 400 * time.Millisecond
)

// Route is one provider/model pair the router may complete against.
type Route struct {
	Provider string
	Model    string
	Client   Completer
}

func (r Route) String() string {
	return r.Provider + " / " + r.Model
}

// Router tries routes in order, retrying transient failures with linear
// backoff, and falls through to the next route on persistent ones.
type Router struct {
	routes []Route
	logger *zap.Logger
	sleep  func(time.Duration)
}

// NewRouter builds a Router over routes. A nil logger is replaced with a
// no-op logger.
func NewRouter(routes []Route, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{routes: routes, logger: logger, sleep: time.Sleep}
}

// Complete runs the conversation against the first route that succeeds.
// Each route gets up to three attempts when the failure class is
// transient (rate_limit, timeout, upstream); other classes fail the
// route immediately. When every route is exhausted the returned error
// aggregates one line per failed attempt.
func (r *Router) Complete(ctx context.Context, messages []model.ChatMessage) (string, error) {
	if len(r.routes) == 0 {
		return "", fmt.Errorf("no model routes configured")
	}

	var failures []string
	for _, route := range r.routes {
		for attempt := 0; attempt <= maxRetries; attempt++ {
			reply, err := route.Client.Complete(ctx, route.Model, messages)
			if err == nil {
				return reply, nil
			}

			class := Classify(err)
			failures = append(failures, fmt.Sprintf("%s => [%s] %v", route, class, err))
			r.logger.Warn("completion attempt failed",
				zap.String("provider", route.Provider),
				zap.String("model", route.Model),
				zap.String("class", string(class)),
				zap.Int("attempt", attempt),
				zap.Error(err))

			if !class.Retryable() || attempt == maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			r.sleep(time.Duration(attempt+1) * backoffStep)
		}
	}

	return "", fmt.Errorf("all model routes failed:\n%s", strings.Join(failures, "\n"))
}
