package js

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator(t *testing.T, cfg Config) *Evaluator {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEvaluate_Values(t *testing.T) {
	e := newEvaluator(t, DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		in   string
		want string
	}{
		{"2 + 2", "4"},
		{"1 / 2", "0.5"},
		{"'hi'", `"hi"`},
		{"[1, 2, 3]", "[1,2,3]"},
		{"({a: 1})", `{"a":1}`},
		{"null", "null"},
		{"true", "true"},
		{"undefined", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			out, err := e.Evaluate(ctx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEvaluate_StatePersists(t *testing.T) {
	e := newEvaluator(t, DefaultConfig())
	ctx := context.Background()

	_, err := e.Evaluate(ctx, "var x = 5")
	require.NoError(t, err)
	out, err := e.Evaluate(ctx, "x + 1")
	require.NoError(t, err)
	assert.Equal(t, "6", out)
}

func TestEvaluate_PrintCapture(t *testing.T) {
	e := newEvaluator(t, DefaultConfig())
	ctx := context.Background()

	out, err := e.Evaluate(ctx, "print('a', 1); console.log('b'); 42")
	require.NoError(t, err)
	assert.Equal(t, "a 1\nb\n42", out)

	out, err = e.Evaluate(ctx, "print('only')")
	require.NoError(t, err)
	assert.Equal(t, "only", out, "print output from previous calls must not leak")
}

func TestEvaluate_Exceptions(t *testing.T) {
	e := newEvaluator(t, DefaultConfig())
	ctx := context.Background()

	_, err := e.Evaluate(ctx, "missing + 1")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "ReferenceError"), err.Error())

	_, err = e.Evaluate(ctx, "throw new Error('boom')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = e.Evaluate(ctx, "2 +")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SyntaxError")

	out, err := e.Evaluate(ctx, "1 + 1")
	require.NoError(t, err)
	assert.Equal(t, "2", out)
}

func TestEvaluate_PrintBeforeFailure(t *testing.T) {
	e := newEvaluator(t, Config{Timeout: 50 * time.Millisecond})
	ctx := context.Background()

	_, err := e.Evaluate(ctx, "print('step 1'); throw new Error('boom')")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "step 1\n"), err.Error())
	assert.Contains(t, err.Error(), "boom")

	_, err = e.Evaluate(ctx, "console.log('spinning'); while (true) {}")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "spinning\nTimeoutError: "), err.Error())
	var evalErr *domain.EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "TimeoutError", evalErr.Kind)

	_, err = e.Evaluate(ctx, "missing")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "ReferenceError"), "output of earlier calls must not leak: %s", err.Error())
}

func TestEvaluate_TimeoutRecovers(t *testing.T) {
	e := newEvaluator(t, Config{Timeout: 50 * time.Millisecond})
	ctx := context.Background()

	_, err := e.Evaluate(ctx, "var n = 1; while (true) {}")
	require.Error(t, err)
	var evalErr *domain.EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "TimeoutError", evalErr.Kind)

	out, err := e.Evaluate(ctx, "n + 1")
	require.NoError(t, err)
	assert.Equal(t, "2", out)
}

func TestEvaluate_Truncates(t *testing.T) {
	e := newEvaluator(t, Config{MaxOutputChars: 5})

	out, err := e.Evaluate(context.Background(), "'x'.repeat(20)")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `"xxxx`))
	assert.Contains(t, out, "truncated")
}

func TestClose(t *testing.T) {
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.Evaluate(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFactory_Isolated(t *testing.T) {
	f := Factory(DefaultConfig())
	a, err := f(context.Background())
	require.NoError(t, err)
	b, err := f(context.Background())
	require.NoError(t, err)

	_, err = a.Evaluate(context.Background(), "var shared = 1")
	require.NoError(t, err)
	_, err = b.Evaluate(context.Background(), "shared")
	assert.Error(t, err)
}
