package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/ratlab"
	"github.com/aretw0/ratlab/internal/presentation/tui"
	"github.com/aretw0/ratlab/pkg/runner"
)

// DefaultSessionID is used by the REPL when no --session is given.
const DefaultSessionID = "default"

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	SessionID string
	Headless  bool
	JSON      bool
	Fresh     bool

	// In and Out default to Stdin and Stdout.
	In  io.Reader
	Out io.Writer
}

// RunSession opens (or resumes) one session and runs the REPL on it until
// EOF, exit/quit or an interrupt.
func RunSession(ctx context.Context, app *App, opts RunOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.SessionID == "" {
		opts.SessionID = DefaultSessionID
	}
	// A piped stdin behaves like --headless: no banner, no prompt.
	headless := opts.Headless || (!opts.JSON && !isTerminal(opts.In))
	quiet := headless || opts.JSON

	if opts.Fresh {
		if err := resetSession(ctx, app, opts.SessionID); err != nil {
			return err
		}
	}

	sess, created, err := app.Manager.Open(ctx, opts.SessionID)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}

	if !quiet {
		tui.PrintBanner(opts.Out, ratlab.Version)
	}
	logSessionStatus(app.Logger, opts.Out, opts.SessionID, created, sess.Len(), quiet)

	r := runner.NewRunner(createRunnerOptions(app, opts, headless)...)
	if err := r.Run(ctx, app.Manager.Bind(opts.SessionID)); err != nil {
		return err
	}

	if !quiet {
		printSystemMessage(opts.Out, "Session '%s' saved.", opts.SessionID)
	}
	return nil
}

// createRunnerOptions prepares the functional options for the Runner.
func createRunnerOptions(app *App, opts RunOptions, headless bool) []runner.Option {
	runnerOpts := []runner.Option{
		runner.WithLogger(app.Logger),
		runner.WithSignalHandling(true),
	}

	switch {
	case opts.JSON:
		runnerOpts = append(runnerOpts,
			runner.WithInputHandler(runner.NewJSONHandler(opts.In, opts.Out)),
			runner.WithInterceptor(runner.MetaCommands(nil)),
		)
	case headless:
		runnerOpts = append(runnerOpts,
			runner.WithInputHandler(runner.NewTextHandler(opts.In, opts.Out, runner.WithPrompt(""))),
			runner.WithInterceptor(runner.MetaCommands(nil)),
		)
	default:
		handler := runner.NewTextHandler(opts.In, opts.Out,
			runner.WithTextHandlerRenderer(tui.NewEntryRenderer(opts.Out)),
		)
		runnerOpts = append(runnerOpts,
			runner.WithInputHandler(handler),
			runner.WithInterceptor(runner.MetaCommands(markdownRenderer())),
		)
	}

	return runnerOpts
}

func markdownRenderer() runner.TextRenderer {
	render := tui.NewRenderer()
	return func(md string) (string, error) {
		out, err := render(md)
		return strings.TrimSpace(out), err
	}
}
