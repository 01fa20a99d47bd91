package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/ratlab/pkg/domain"
)

// DefaultPrompt is shown before every line read by a TextHandler.
const DefaultPrompt = "> "

type inputResult struct {
	text string
	err  error
}

// linePump reads lines in the background so Input can honour ctx while a
// read is blocked on the terminal.
type linePump struct {
	reader    *bufio.Reader
	inputChan chan inputResult
	startOnce sync.Once
}

func newLinePump(r io.Reader) *linePump {
	return &linePump{reader: bufio.NewReader(r)}
}

func (p *linePump) start() {
	p.startOnce.Do(func() {
		p.inputChan = make(chan inputResult)
		go p.run()
	})
}

func (p *linePump) run() {
	for {
		text, err := p.reader.ReadString('\n')

		// A final line without terminator still counts.
		if text != "" {
			p.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				close(p.inputChan)
				return
			}
			p.inputChan <- inputResult{err: err}
			// Backoff for persistent read failures.
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// next blocks for the next raw line, ctx, or EOF.
func (p *linePump) next(ctx context.Context) (string, error) {
	p.start()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-p.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return res.text, nil
	}
}

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Writer   io.Writer
	Prompt   string
	Renderer EntryRenderer

	pump *linePump
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the entry renderer.
func WithTextHandlerRenderer(renderer EntryRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithPrompt overrides the prompt. An empty prompt disables it (piped input).
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Writer: w,
		Prompt: DefaultPrompt,
		pump:   newLinePump(r),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Input shows the prompt and returns the next line without its terminator.
// Lines rejected by SanitizeInput are reported and the prompt is shown again.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	for {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if h.Prompt != "" {
			fmt.Fprint(h.Writer, h.Prompt)
		}

		raw, err := h.pump.next(ctx)
		if err != nil {
			return "", err
		}

		clean, err := SanitizeInput(trimLineEnding(raw))
		if err != nil {
			fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
			continue
		}
		return clean, nil
	}
}

// Output prints Output and Error entries. Input entries were already echoed
// by the terminal and empty outputs (silenced statements) print nothing.
func (h *TextHandler) Output(ctx context.Context, entries domain.Transcript) error {
	for _, e := range entries {
		if e.Kind == domain.KindInput || e.Value == "" {
			continue
		}
		text := e.Value
		if h.Renderer != nil {
			if rendered, err := h.Renderer(e); err == nil {
				text = rendered
			}
		}
		if _, err := fmt.Fprintln(h.Writer, strings.TrimRight(text, "\n")); err != nil {
			return err
		}
	}
	return nil
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintln(h.Writer, msg)
	return err
}
