package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ListSessions prints the stored session IDs.
func ListSessions(ctx context.Context, app *App, w io.Writer) error {
	ids, err := app.Manager.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}

	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}

	fmt.Fprintln(w, "Sessions:")
	for _, id := range ids {
		fmt.Fprintln(w, "- "+id)
	}
	return nil
}

// InspectSession prints the stored record of one session, as indented JSON
// or as a numbered transcript.
func InspectSession(ctx context.Context, app *App, w io.Writer, sessionID string, asJSON bool) error {
	record, err := app.Manager.Store().Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}

	if asJSON {
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling session: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintf(w, "Session: %s\n", record.ID)
	if record.Engine != "" {
		fmt.Fprintf(w, "Engine:  %s\n", record.Engine)
	}
	fmt.Fprintf(w, "Created: %s\n", record.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Updated: %s\n", record.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintln(w)
	for i, e := range record.Transcript {
		fmt.Fprintf(w, "%3d %-6s %s\n", i+1, e.Kind, e.Value)
	}
	return nil
}

// RemoveSessions deletes every listed session, reporting each one.
// It keeps going after a failure and returns all errors joined.
func RemoveSessions(ctx context.Context, app *App, w io.Writer, ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := app.Manager.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}
