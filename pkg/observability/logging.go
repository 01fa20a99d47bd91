package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/ratlab/pkg/domain"
)

// LoggingHooks logs every submission and result at debug level.
// Inputs are not logged, only their size.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			logger.DebugContext(ctx, "submit",
				"session_id", e.SessionID,
				"bytes", len(e.Text),
			)
		},
		OnEvaluated: func(ctx context.Context, e *domain.EvaluationEvent) {
			logger.DebugContext(ctx, "evaluated",
				"session_id", e.SessionID,
				"kind", e.Entry.Kind,
				"duration", e.Duration,
			)
		},
	}
}
