package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/ratlab/pkg/adapters/memory"
	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/evaluator/calc"
	"github.com/aretw0/ratlab/pkg/runner"
	"github.com/aretw0/ratlab/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(calc.Factory(), memory.NewStore())
	t.Cleanup(func() { mgr.Close() })
	return NewServer(mgr), mgr
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestSubmitTool(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleSubmit(ctx, mcp.CallToolRequest{}, submitArgs{SessionID: "agent", Text: "x = 5"})
	require.NoError(t, err)
	assert.Equal(t, domain.Transcript{domain.Input("x = 5"), domain.Output("5")}, resp.Entries)

	resp, err = s.handleSubmit(ctx, mcp.CallToolRequest{}, submitArgs{SessionID: "agent", Text: "x +"})
	require.NoError(t, err, "evaluation failures are entries, not tool errors")
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, domain.KindError, resp.Entries[1].Kind)
	assert.Len(t, resp.Transcript, 4)
	assert.Empty(t, resp.Warning)
}

func TestSubmitTool_Rejected(t *testing.T) {
	s, mgr := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleSubmit(ctx, mcp.CallToolRequest{}, submitArgs{Text: "1"})
	assert.ErrorIs(t, err, domain.ErrEmptySessionID)

	t.Setenv(runner.EnvMaxInputSize, "2")
	_, err = s.handleSubmit(ctx, mcp.CallToolRequest{}, submitArgs{SessionID: "agent", Text: "1234"})
	assert.ErrorIs(t, err, runner.ErrInputTooLarge)

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSubmitTool_Structured(t *testing.T) {
	s, _ := newTestServer(t)

	handler := mcp.NewStructuredToolHandler(s.handleSubmit)
	res, err := handler(context.Background(), callRequest(map[string]any{
		"session_id": "agent",
		"text":       "2 + 2",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var decoded SubmitResponse
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "agent", decoded.SessionID)
	assert.Equal(t, domain.Output("4"), decoded.Entries[1])
}

func TestTranscriptTool(t *testing.T) {
	s, mgr := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleTranscript(ctx, mcp.CallToolRequest{}, sessionArgs{SessionID: "missing"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = mgr.Submit(ctx, "a", "1 + 1")
	require.NoError(t, err)

	resp, err := s.handleTranscript(ctx, mcp.CallToolRequest{}, sessionArgs{SessionID: "a"})
	require.NoError(t, err)
	assert.Equal(t, domain.Transcript{domain.Input("1 + 1"), domain.Output("2")}, resp.Transcript)
}

func TestListAndDeleteTools(t *testing.T) {
	s, mgr := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleListSessions(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", textOf(t, res))

	_, err = mgr.Submit(ctx, "b", "1")
	require.NoError(t, err)
	_, err = mgr.Submit(ctx, "a", "1")
	require.NoError(t, err)

	res, err = s.handleListSessions(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, textOf(t, res))

	res, err = s.handleDeleteSession(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError, "session_id is required")

	res, err = s.handleDeleteSession(ctx, callRequest(map[string]any{"session_id": "a"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestResources(t *testing.T) {
	s, mgr := newTestServer(t)
	ctx := context.Background()

	_, err := mgr.Submit(ctx, "r", "3 * 3")
	require.NoError(t, err)

	contents, err := s.readSessions(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, `["r"]`, contents[0].(mcp.TextResourceContents).Text)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "ratlab://sessions/r"
	contents, err = s.readSession(ctx, req)
	require.NoError(t, err)
	var tr domain.Transcript
	require.NoError(t, json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &tr))
	assert.Equal(t, domain.Output("9"), tr[1])

	req.Params.URI = "ratlab://other/r"
	_, err = s.readSession(ctx, req)
	assert.Error(t, err)
}
