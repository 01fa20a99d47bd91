package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n")

	out := buf.String()
	assert.Contains(t, out, "v0.1.0")
	assert.Contains(t, out, ":help")
	assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal")
}

func TestEntryRenderer(t *testing.T) {
	var buf bytes.Buffer
	render := NewEntryRenderer(&buf)

	out, err := render(domain.Failure(domain.NewEvaluationError("NameError", "x is not defined")))
	require.NoError(t, err)
	assert.Equal(t, "NameError: x is not defined", out)

	out, err = render(domain.Output("4"))
	require.NoError(t, err)
	assert.Equal(t, "4", out)
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("| Command | Action |\n| --- | --- |\n| `:help` | help |\n")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, ":help"))
}
