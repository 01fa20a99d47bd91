package session_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/ports"
	"github.com/aretw0/ratlab/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tinyCalc understands "a + b", "name = n" and "name + n". Enough to show
// evaluator state living across submissions.
type tinyCalc struct {
	vars map[string]int
}

func newTinyCalc() *tinyCalc { return &tinyCalc{vars: map[string]int{}} }

func (c *tinyCalc) Evaluate(ctx context.Context, text string) (string, error) {
	if name, rhs, ok := strings.Cut(text, "="); ok {
		v, err := c.operand(strings.TrimSpace(rhs))
		if err != nil {
			return "", err
		}
		c.vars[strings.TrimSpace(name)] = v
		return strconv.Itoa(v), nil
	}
	lhs, rhs, ok := strings.Cut(text, "+")
	if !ok {
		v, err := c.operand(strings.TrimSpace(text))
		return strconv.Itoa(v), err
	}
	if strings.TrimSpace(rhs) == "" {
		return "", domain.NewEvaluationError("SyntaxError", "unexpected end of input")
	}
	a, err := c.operand(strings.TrimSpace(lhs))
	if err != nil {
		return "", err
	}
	b, err := c.operand(strings.TrimSpace(rhs))
	if err != nil {
		return "", err
	}
	return strconv.Itoa(a + b), nil
}

func (c *tinyCalc) operand(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if v, ok := c.vars[s]; ok {
		return v, nil
	}
	return 0, domain.NewEvaluationError("NameError", "%s is not defined", s)
}

func TestSubmit_Arithmetic(t *testing.T) {
	s := session.New(newTinyCalc())

	tr, err := s.Submit(context.Background(), "2 + 2")
	require.NoError(t, err)
	assert.Equal(t, domain.Transcript{domain.Input("2 + 2"), domain.Output("4")}, tr)
	assert.Equal(t, domain.StatusAwaitingInput, s.Status())
}

func TestSubmit_MalformedExpression(t *testing.T) {
	s := session.New(newTinyCalc())

	tr, err := s.Submit(context.Background(), "2 +")
	require.NoError(t, err)
	assert.Equal(t, domain.Transcript{
		domain.Input("2 +"),
		{Kind: domain.KindError, Value: "SyntaxError: unexpected end of input"},
	}, tr)
}

func TestSubmit_StatePersistsAcrossSubmissions(t *testing.T) {
	s := session.New(newTinyCalc())
	ctx := context.Background()

	_, err := s.Submit(ctx, "x = 5")
	require.NoError(t, err)
	tr, err := s.Submit(ctx, "x + 1")
	require.NoError(t, err)

	assert.Equal(t, domain.Transcript{
		domain.Input("x = 5"), domain.Output("5"),
		domain.Input("x + 1"), domain.Output("6"),
	}, tr)
}

func TestSubmit_FailureIsIsolated(t *testing.T) {
	s := session.New(newTinyCalc())
	ctx := context.Background()

	tr, err := s.Submit(ctx, "bad")
	require.NoError(t, err)
	require.Len(t, tr, 2)
	assert.Equal(t, domain.KindError, tr[1].Kind)
	assert.Equal(t, "NameError: bad is not defined", tr[1].Value)

	tr, err = s.Submit(ctx, "1 + 1")
	require.NoError(t, err)
	require.Len(t, tr, 4)
	assert.Equal(t, domain.Input("bad"), tr[0])
	assert.Equal(t, domain.KindError, tr[1].Kind)
	assert.Equal(t, domain.Output("2"), tr[3])
	assert.NoError(t, tr.Validate(false))
}

func TestSubmit_EmptyInputIsForwarded(t *testing.T) {
	var seen []string
	eval := ports.EvaluatorFunc(func(ctx context.Context, text string) (string, error) {
		seen = append(seen, text)
		return "", nil
	})
	s := session.New(eval)

	for _, text := range []string{"", "   ", "\t"} {
		_, err := s.Submit(context.Background(), text)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"", "   ", "\t"}, seen)
	tr := s.Transcript()
	require.Len(t, tr, 6)
	assert.Equal(t, domain.Input("   "), tr[2])
	assert.Equal(t, domain.Output(""), tr[3])
}

func TestSubmit_EmptyErrorMessage(t *testing.T) {
	s := session.New(ports.EvaluatorFunc(func(ctx context.Context, text string) (string, error) {
		return "", errors.New("")
	}))

	tr, err := s.Submit(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, domain.TranscriptEntry{Kind: domain.KindError, Value: "Error"}, tr[1])
}

func TestSubmit_PanicBecomesError(t *testing.T) {
	calls := 0
	s := session.New(ports.EvaluatorFunc(func(ctx context.Context, text string) (string, error) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return "ok", nil
	}))

	tr, err := s.Submit(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, domain.KindError, tr[1].Kind)
	assert.Equal(t, "InternalError: boom", tr[1].Value)

	tr, err = s.Submit(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, domain.Output("ok"), tr[3])
	assert.Equal(t, domain.StatusAwaitingInput, s.Status())
}

func TestSubmit_InputVisibleDuringEvaluation(t *testing.T) {
	started := make(chan struct{})
	finish := make(chan struct{})
	s := session.New(ports.EvaluatorFunc(func(ctx context.Context, text string) (string, error) {
		close(started)
		<-finish
		return "done", nil
	}))

	done := make(chan domain.Transcript)
	go func() {
		tr, _ := s.Submit(context.Background(), "slow")
		done <- tr
	}()

	<-started
	assert.Equal(t, domain.Transcript{domain.Input("slow")}, s.Transcript())
	assert.Equal(t, domain.StatusEvaluating, s.Status())

	close(finish)
	tr := <-done
	assert.Equal(t, domain.Transcript{domain.Input("slow"), domain.Output("done")}, tr)
}

func TestSubmit_ConcurrentSubmissionsNeverInterleave(t *testing.T) {
	s := session.New(ports.EvaluatorFunc(func(ctx context.Context, text string) (string, error) {
		time.Sleep(time.Millisecond)
		return "echo " + text, nil
	}))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Submit(context.Background(), fmt.Sprintf("in-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	tr := s.Transcript()
	require.Len(t, tr, 2*n)
	require.NoError(t, tr.Validate(false))
	for i := 0; i < len(tr); i += 2 {
		assert.Equal(t, "echo "+tr[i].Value, tr[i+1].Value, "pair at %d must belong together", i)
	}
}

func TestSubmit_QueuedSubmissionsKeepArrivalOrder(t *testing.T) {
	release := make(chan struct{})
	first := true
	s := session.New(ports.EvaluatorFunc(func(ctx context.Context, text string) (string, error) {
		if first {
			first = false
			<-release
		}
		return text, nil
	}))

	go func() { _, _ = s.Submit(context.Background(), "a") }()
	require.Eventually(t, func() bool { return s.Len() == 1 }, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for _, text := range []string{"b", "c", "d"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, _ = s.Submit(context.Background(), text)
		}(text)
		// Let each goroutine block on the queue before starting the next one.
		time.Sleep(20 * time.Millisecond)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, []string{"a", "b", "c", "d"}, s.Transcript().Inputs())
}

func TestSubmit_RejectedWhileQueued(t *testing.T) {
	release := make(chan struct{})
	s := session.New(ports.EvaluatorFunc(func(ctx context.Context, text string) (string, error) {
		<-release
		return text, nil
	}))

	go func() { _, _ = s.Submit(context.Background(), "running") }()
	require.Eventually(t, func() bool { return s.Len() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	tr, err := s.Submit(ctx, "queued")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, tr)

	close(release)
	require.Eventually(t, func() bool { return s.Len() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"running"}, s.Transcript().Inputs())
}

func TestSubmit_CancelAfterStartStillCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := session.New(ports.EvaluatorFunc(func(evalCtx context.Context, text string) (string, error) {
		cancel()
		if evalCtx.Err() != nil {
			return "", evalCtx.Err()
		}
		return "finished", nil
	}))

	tr, err := s.Submit(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, domain.Output("finished"), tr[1])
}

func TestSubmit_ObserversAndHooks(t *testing.T) {
	var observed []domain.TranscriptEntry
	var events []domain.EventType
	var evaluated *domain.EvaluationEvent

	s := session.New(newTinyCalc(),
		session.WithID("s-1"),
		session.WithObserver(func(e domain.TranscriptEntry) { observed = append(observed, e) }),
		session.WithLifecycleHooks(domain.LifecycleHooks{
			OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
				events = append(events, e.Type)
				assert.Equal(t, "s-1", e.SessionID)
				assert.Equal(t, "2 + 2", e.Text)
			},
			OnEvaluated: func(ctx context.Context, e *domain.EvaluationEvent) {
				events = append(events, e.Type)
				evaluated = e
			},
		}),
	)

	_, err := s.Submit(context.Background(), "2 + 2")
	require.NoError(t, err)

	assert.Equal(t, []domain.TranscriptEntry{domain.Input("2 + 2"), domain.Output("4")}, observed)
	assert.Equal(t, []domain.EventType{domain.EventSubmit, domain.EventEvaluated}, events)
	require.NotNil(t, evaluated)
	assert.Equal(t, domain.Output("4"), evaluated.Entry)
	assert.Equal(t, "s-1", s.ID())
}

func TestTranscript_ReturnsCopy(t *testing.T) {
	s := session.New(newTinyCalc(), session.WithTranscript(domain.Transcript{
		domain.Input("1 + 1"), domain.Output("2"),
	}))

	tr := s.Transcript()
	tr[1] = domain.Output("tampered")

	assert.Equal(t, "2", s.Transcript()[1].Value)
	assert.Equal(t, 2, s.Len())
}
