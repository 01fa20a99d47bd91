package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/ratlab/pkg/domain"
)

// KindSystem tags meta-messages on the NDJSON stream.
const KindSystem = "system"

// jsonLine is one NDJSON record. Transcript entries use the same shape.
type jsonLine struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// JSONHandler implements the IOHandler interface for JSON-Lines communication.
// Each input line is either a JSON string, an object with a "text" field, or
// raw text. Each entry is written as one {"kind","value"} line.
type JSONHandler struct {
	Writer  io.Writer
	Encoder *json.Encoder

	pump *linePump
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONHandler{
		Writer:  w,
		Encoder: enc,
		pump:    newLinePump(r),
	}
}

func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		raw, err := h.pump.next(ctx)
		if err != nil {
			return "", err
		}

		clean, err := SanitizeInput(decodeInputLine(trimLineEnding(raw)))
		if err != nil {
			if err := h.SystemOutput(ctx, "rejected: "+err.Error()); err != nil {
				return "", err
			}
			continue
		}
		return clean, nil
	}
}

func decodeInputLine(line string) string {
	trimmed := strings.TrimSpace(line)

	var val string
	if err := json.Unmarshal([]byte(trimmed), &val); err == nil {
		return val
	}

	var obj struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil && obj.Text != nil {
		return *obj.Text
	}

	// Plain text keeps its whitespace.
	return line
}

// Output emits every entry, inputs included, so the stream is a full record.
func (h *JSONHandler) Output(ctx context.Context, entries domain.Transcript) error {
	for _, e := range entries {
		if err := h.Encoder.Encode(jsonLine{Kind: string(e.Kind), Value: e.Value}); err != nil {
			return err
		}
	}
	return nil
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(jsonLine{Kind: KindSystem, Value: msg})
}
