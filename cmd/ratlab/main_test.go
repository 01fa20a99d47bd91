package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/ratlab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "", "version")
	assert.Equal(t, "ratlab version "+strings.TrimSpace(ratlab.Version)+"\n", out)
}

func TestRunCommand_Piped(t *testing.T) {
	out := execute(t, "a = 3\n[1 2] * [a; 4]\n", "run", "--store", "memory", "--session", "cmd")
	assert.Equal(t, "3\n11\n", out)
}

func TestRunCommand_InvalidEngine(t *testing.T) {
	rootCmd.SetArgs([]string{"run", "--store", "memory", "--engine", "cobol"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown engine")
}
