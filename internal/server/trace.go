package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/me/lunchwheel/pkg/model"
)

// requestTrace follows one proxied request through its lifecycle and logs
// each transition. It never logs credentials; callers pass only safe attrs.
type requestTrace struct {
	ctx    context.Context
	logger *slog.Logger
	state  model.RequestState
}

func (s *Server) trace(r *http.Request, op string) *requestTrace {
	return &requestTrace{
		ctx: r.Context(),
		logger: s.logger.With(
			"op", op,
			"request_id", RequestIDFromContext(r.Context()),
		),
		state: model.RequestStateReceived,
	}
}

// to moves the trace to next and logs it. Upstream failures log at WARN.
func (t *requestTrace) to(next model.RequestState, args ...any) {
	if !t.state.CanTransitionTo(next) {
		t.logger.Warn("unexpected request state transition", "from", t.state, "to", next)
	}
	t.state = next

	level := slog.LevelInfo
	switch next {
	case model.RequestStateUpstreamError, model.RequestStateTransportError:
		level = slog.LevelWarn
	case model.RequestStateUpstreamCalled, model.RequestStateResponded:
		level = slog.LevelDebug
	}
	t.logger.Log(t.ctx, level, "request "+next.String(), args...)
}
