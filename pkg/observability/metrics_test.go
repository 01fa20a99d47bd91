package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/observability"
	"github.com/aretw0/ratlab/pkg/ports"
	"github.com/aretw0/ratlab/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo() ports.Evaluator {
	return ports.EvaluatorFunc(func(ctx context.Context, text string) (string, error) {
		if text == "bad" {
			return "", errors.New("bad input")
		}
		return text, nil
	})
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	s := session.New(echo(), session.WithLifecycleHooks(m.Hooks()))
	for _, in := range []string{"a", "b", "bad"} {
		_, err := s.Submit(context.Background(), in)
		require.NoError(t, err)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Submissions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Entries.WithLabelValues("output")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Entries.WithLabelValues("error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Duration))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestLoggingHooks(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	hooks := domain.ChainHooks(observability.LoggingHooks(logger))
	s := session.New(echo(), session.WithID("s1"), session.WithLifecycleHooks(hooks))
	_, err := s.Submit(context.Background(), "secret")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "msg=submit")
	assert.Contains(t, out, "msg=evaluated")
	assert.Contains(t, out, "session_id=s1")
	assert.Contains(t, out, "kind=output")
	assert.False(t, strings.Contains(out, "secret"), "inputs are never logged")
}
