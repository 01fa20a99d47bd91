package ports

import "context"

// Evaluator is the opaque engine behind a session.
// It is stateful across calls; that state is invisible to the session core.
type Evaluator interface {
	// Evaluate executes one submission.
	// A nil error means the returned string is the display result.
	// A non-nil error is a failure whose Error() text is shown to the user.
	Evaluate(ctx context.Context, text string) (string, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, text string) (string, error)

// Evaluate calls f(ctx, text).
func (f EvaluatorFunc) Evaluate(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// EvaluatorFactory creates a fresh Evaluator in its starting state.
type EvaluatorFactory func(ctx context.Context) (Evaluator, error)
