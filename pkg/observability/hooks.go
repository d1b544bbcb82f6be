package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/proofreader/pkg/domain"
)

// LogHooks returns hooks that write one structured line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.InfoContext(ctx, "turn",
				"session_id", e.SessionID,
				"from", e.From,
				"to", e.To,
				"outcome", e.Outcome,
			)
		},
		OnModelCall: func(ctx context.Context, e *domain.ModelEvent) {
			logger.InfoContext(ctx, "model_call",
				"session_id", e.SessionID,
				"purpose", e.Purpose,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
		OnReset: func(ctx context.Context, e *domain.EventBase) {
			logger.InfoContext(ctx, "reset", "session_id", e.SessionID)
		},
	}
}

// Combine fans every event out to each set of hooks in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			for _, h := range all {
				if h.OnTurn != nil {
					h.OnTurn(ctx, e)
				}
			}
		},
		OnModelCall: func(ctx context.Context, e *domain.ModelEvent) {
			for _, h := range all {
				if h.OnModelCall != nil {
					h.OnModelCall(ctx, e)
				}
			}
		},
		OnReset: func(ctx context.Context, e *domain.EventBase) {
			for _, h := range all {
				if h.OnReset != nil {
					h.OnReset(ctx, e)
				}
			}
		},
	}
}
