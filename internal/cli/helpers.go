package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/ratlab/pkg/domain"
	"golang.org/x/term"
)

var stderr io.Writer = os.Stderr

// printSystemMessage prints a standardized system message to w.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func logSessionStatus(logger *slog.Logger, w io.Writer, sessionID string, created bool, size int, quiet bool) {
	if created {
		logger.Info("Session Created", "session_id", sessionID)
		if !quiet {
			printSystemMessage(w, "Session '%s' active.", sessionID)
		}
		return
	}
	logger.Info("Session Resumed", "session_id", sessionID, "entries", size)
	if !quiet {
		printSystemMessage(w, "Resuming session '%s' (%d entries).", sessionID, size)
	}
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// resetSession deletes a stored session, ignoring a missing one.
func resetSession(ctx context.Context, app *App, sessionID string) error {
	err := app.Manager.Delete(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("failed to reset session %q: %w", sessionID, err)
	}
	return nil
}
