package runner

import (
	"context"
	"fmt"
	"strings"
)

// Interceptor inspects a line before it reaches the session.
// It returns true when it fully handled the line; the line is then never submitted.
type Interceptor func(ctx context.Context, line string, sub Submitter, h IOHandler) (bool, error)

// MultiInterceptor chains multiple interceptors. The first one to handle a line wins.
func MultiInterceptor(interceptors ...Interceptor) Interceptor {
	return func(ctx context.Context, line string, sub Submitter, h IOHandler) (bool, error) {
		for _, interceptor := range interceptors {
			handled, err := interceptor(ctx, line, sub, h)
			if err != nil {
				return false, err
			}
			if handled {
				return true, nil
			}
		}
		return false, nil
	}
}

// HelpText is shown by the :help command.
const HelpText = `# ratlab

Type an expression and press enter. Every submission is recorded in the
session transcript together with its result.

| Command | Effect |
| --- | --- |
| ` + "`:help`" + ` | show this help |
| ` + "`:history`" + ` | print the transcript so far |
| ` + "`exit`, `quit`" + ` | leave the session |
`

// MetaCommands handles ":help" and ":history". Other lines pass through
// untouched, including unknown ":" lines which the evaluator may accept.
// A non-nil render is applied to the help text.
func MetaCommands(render TextRenderer) Interceptor {
	return func(ctx context.Context, line string, sub Submitter, h IOHandler) (bool, error) {
		switch strings.TrimSpace(line) {
		case ":help":
			text := HelpText
			if render != nil {
				if out, err := render(HelpText); err == nil {
					text = out
				}
			}
			return true, h.SystemOutput(ctx, strings.TrimRight(text, "\n"))
		case ":history":
			tr, err := sub.Transcript(ctx)
			if err != nil {
				return true, fmt.Errorf("failed to read transcript: %w", err)
			}
			if len(tr) == 0 {
				return true, h.SystemOutput(ctx, "(empty)")
			}
			var b strings.Builder
			for i, e := range tr {
				fmt.Fprintf(&b, "%3d %-6s %s\n", i+1, e.Kind, e.Value)
			}
			return true, h.SystemOutput(ctx, strings.TrimRight(b.String(), "\n"))
		}
		return false, nil
	}
}
