package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput_SizeLimit(t *testing.T) {
	limit := DefaultMaxInputSize

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeInput(strings.Repeat("a", tt.inputSize))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInputTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeInput_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "x = [1 2; 3 4]", "x = [1 2; 3 4]"},
		{"Safe Controls", "a = 1\nb\t= 2\r", "a = 1\nb\t= 2\r"},
		{"Colored Paste", "\x1b[32m>\x1b[0m 2 + 2", "> 2 + 2"},
		{"Cursor Move", "1 +\x1b[2K 1", "1 + 1"},
		{"Title Sequence", "\x1b]0;title\a3 * 3", "3 * 3"},
		{"Title With ST", "\x1b]2;t\x1b\\4", "4"},
		{"Lone Escape", "5\x1b", "5"},
		{"Null Byte", "1\x00 + 1", "1 + 1"},
		{"Bell", "ans\x07", "ans"},
		{"Byte Order Mark", "\uFEFF2 + 2", "2 + 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSanitizeInput_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "10")
	assert.Equal(t, 10, MaxInputSize())

	_, err := SanitizeInput("12345678901")
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = SanitizeInput("12345")
	assert.NoError(t, err)

	t.Setenv(EnvMaxInputSize, "nope")
	assert.Equal(t, DefaultMaxInputSize, MaxInputSize(), "garbage falls back to the default")
}

func TestSanitizeInput_InvalidUTF8(t *testing.T) {
	_, err := SanitizeInput("\xbd\xb2\x3d\xbc\x20\xe2\x8c\x98")
	assert.Equal(t, ErrInvalidUTF8, err)
}

func TestSanitizeInput_KeepsWhitespace(t *testing.T) {
	got, err := SanitizeInput("  x = 5  ")
	require.NoError(t, err)
	assert.Equal(t, "  x = 5  ", got)
}

func TestTrimLineEnding(t *testing.T) {
	tests := map[string]string{
		"2 + 2\n":   "2 + 2",
		"2 + 2\r\n": "2 + 2",
		"2 + 2":     "2 + 2",
		" a \n":     " a ",
		"\n":        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, trimLineEnding(in), "trimLineEnding(%q)", in)
	}
}
