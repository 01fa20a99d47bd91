package tui

import (
	"io"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders markdown using glamour.
// If the renderer cannot be built the markdown is returned unchanged.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// NewEntryRenderer styles transcript entries for the terminal behind w.
// Error entries are red; output is printed as is.
func NewEntryRenderer(w io.Writer) func(domain.TranscriptEntry) (string, error) {
	out := termenv.NewOutput(w)
	red := out.Color("#f87171")

	return func(e domain.TranscriptEntry) (string, error) {
		if e.Kind == domain.KindError {
			return out.String(e.Value).Foreground(red).String(), nil
		}
		return e.Value, nil
	}
}
