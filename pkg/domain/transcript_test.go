package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_Since(t *testing.T) {
	tr := domain.Transcript{
		domain.Input("1"), domain.Output("1"),
		domain.Input("2"), domain.Output("2"),
	}

	assert.Equal(t, domain.Transcript{domain.Input("2"), domain.Output("2")}, tr.Since(2))
	assert.Empty(t, tr.Since(4))
	assert.Empty(t, tr.Since(10))
	assert.Len(t, tr.Since(-1), 4)

	// Since must not alias the original backing array.
	tail := tr.Since(2)
	tail[0] = domain.Input("changed")
	assert.Equal(t, "2", tr[2].Value)
}

func TestTranscript_Inputs(t *testing.T) {
	tr := domain.Transcript{
		domain.Input("x = 5"), domain.Output("5"),
		domain.Input("bad"), domain.Failure(errors.New("NameError: bad is not defined")),
	}
	assert.Equal(t, []string{"x = 5", "bad"}, tr.Inputs())
}

func TestTranscript_Validate(t *testing.T) {
	good := domain.Transcript{domain.Input("a"), domain.Output("b")}
	require.NoError(t, good.Validate(false))

	pending := append(good.Clone(), domain.Input("c"))
	require.NoError(t, pending.Validate(true))

	var terr *domain.TranscriptError
	require.ErrorAs(t, pending.Validate(false), &terr)
	assert.Equal(t, 2, terr.Index)

	interleaved := domain.Transcript{domain.Input("a"), domain.Input("b")}
	require.ErrorAs(t, interleaved.Validate(true), &terr)
	assert.Equal(t, 1, terr.Index)

	unknown := domain.Transcript{{Kind: "warning", Value: "?"}}
	assert.Error(t, unknown.Validate(true))
}

func TestFailure_NeverEmpty(t *testing.T) {
	assert.Equal(t, "Error", domain.Failure(errors.New("")).Value)
	assert.Equal(t, "Error", domain.Failure(nil).Value)
	assert.Equal(t, domain.KindError, domain.Failure(nil).Kind)
}

func TestEvaluationError_Format(t *testing.T) {
	err := domain.NewEvaluationError("SyntaxError", "unexpected end of input")
	assert.Equal(t, "SyntaxError: unexpected end of input", err.Error())

	bare := &domain.EvaluationError{Message: "boom"}
	assert.Equal(t, "boom", bare.Error())
}

func TestRecord_Snapshot(t *testing.T) {
	r := domain.NewRecord("s1", "calc")
	r.Transcript = append(r.Transcript, domain.Input("1"), domain.Output("1"))

	cp := r.Snapshot()
	cp.Transcript[1] = domain.Output("changed")

	assert.Equal(t, "1", r.Transcript[1].Value)
	assert.Equal(t, "s1", cp.ID)
	assert.Equal(t, "calc", cp.Engine)
}
