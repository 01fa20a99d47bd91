package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Runner handles the read-submit-print loop of one session using provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on Stdin/Stdout.
	Handler IOHandler

	// Interceptor sees every line before submission.
	// Defaults to MetaCommands without a renderer.
	Interceptor Interceptor

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Banner is shown once before the first prompt.
	Banner string

	// HandleSignals makes SIGINT/SIGTERM end the loop gracefully.
	HandleSignals bool

	// InterruptSource ends the loop when it fires or is closed.
	InterruptSource <-chan struct{}
}

// NewRunner creates a new Runner with the given options.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines from the handler and submits them until EOF, "exit"/"quit"
// or an interrupt. An interrupt arriving mid-evaluation lets the evaluation
// finish; the loop ends right after its entries are shown.
func (r *Runner) Run(ctx context.Context, sub Submitter) error {
	handler := r.resolveHandler()
	interceptor := r.resolveInterceptor()

	loopCtx, signals, stop := r.interruptContext(ctx)
	defer stop()

	if r.Banner != "" {
		if err := handler.SystemOutput(loopCtx, r.Banner); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	for {
		line, err := handler.Input(loopCtx)
		if err != nil {
			if signals != nil {
				signals.CheckRace()
			}
			if loopCtx.Err() != nil {
				return r.interrupted(ctx, handler)
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		if isExit(line) {
			return nil
		}

		handled, err := interceptor(loopCtx, line, sub, handler)
		if err != nil {
			return fmt.Errorf("command error: %w", err)
		}
		if handled {
			continue
		}

		resp, err := SubmitAndCollect(loopCtx, sub, line)
		if resp == nil {
			if loopCtx.Err() != nil {
				return r.interrupted(ctx, handler)
			}
			return fmt.Errorf("submit error: %w", err)
		}
		r.Logger.Debug("submission evaluated", "entries", len(resp.Transcript), "kind", resp.Entries[len(resp.Entries)-1].Kind)

		if err := handler.Output(loopCtx, resp.Entries); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		if err != nil {
			r.Logger.Warn("submission not persisted", "err", err)
			if err := handler.SystemOutput(loopCtx, "warning: "+err.Error()); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		}

		if loopCtx.Err() != nil {
			return r.interrupted(ctx, handler)
		}
	}
}

// interrupted ends the loop. A cancelled parent is reported as such;
// a signal or interrupt source is a clean exit.
func (r *Runner) interrupted(parent context.Context, handler IOHandler) error {
	if err := parent.Err(); err != nil {
		return err
	}
	r.Logger.Debug("runner interrupted")
	_ = handler.SystemOutput(context.Background(), "interrupted")
	return nil
}

func (r *Runner) interruptContext(parent context.Context) (context.Context, *SignalManager, func()) {
	ctx, cancel := context.WithCancel(parent)

	var signals *SignalManager
	if r.HandleSignals {
		signals = NewSignalManager()
		sigCtx := signals.Context()
		go func() {
			select {
			case <-sigCtx.Done():
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if r.InterruptSource != nil {
		src := r.InterruptSource
		go func() {
			select {
			case <-src:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return ctx, signals, func() {
		cancel()
		if signals != nil {
			signals.Stop()
		}
	}
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler != nil {
		return r.Handler
	}
	// Memoize to prevent creating new pumps on subsequent Run() calls
	r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	return r.Handler
}

func (r *Runner) resolveInterceptor() Interceptor {
	if r.Interceptor != nil {
		return r.Interceptor
	}
	return MetaCommands(nil)
}

func isExit(line string) bool {
	switch strings.TrimSpace(line) {
	case "exit", "quit":
		return true
	}
	return false
}
