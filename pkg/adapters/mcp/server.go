package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/ratlab"
	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	sessionsURI        = "ratlab://sessions"
	sessionURIPrefix   = sessionsURI + "/"
	sessionURITemplate = sessionURIPrefix + "{id}"
)

// SubmitResponse is the structured result of the submit tool.
type SubmitResponse struct {
	SessionID  string            `json:"session_id" jsonschema_description:"The session the text was submitted to"`
	Entries    domain.Transcript `json:"entries" jsonschema_description:"The input entry and its output or error entry"`
	Transcript domain.Transcript `json:"transcript" jsonschema_description:"The full session history"`
	Warning    string            `json:"warning,omitempty" jsonschema_description:"Set when the transcript could not be persisted"`
}

// TranscriptResponse is the structured result of the transcript tool.
type TranscriptResponse struct {
	SessionID  string            `json:"session_id"`
	Transcript domain.Transcript `json:"transcript"`
}

type submitArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

// Sessions is the part of the session manager the MCP surface needs.
type Sessions interface {
	Submit(ctx context.Context, sessionID, text string) (domain.Transcript, error)
	Transcript(ctx context.Context, sessionID string) (domain.Transcript, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// Server exposes a session manager as an MCP Server.
type Server struct {
	sessions  Sessions
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		mcpServer: server.NewMCPServer("ratlab-mcp", strings.TrimSpace(ratlab.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	submitTool := mcp.NewTool("submit",
		mcp.WithDescription("Submit one line of text to a session. The session is created on first use. "+
			"Evaluation failures are returned as an error entry, not as a tool error."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to evaluate, submitted verbatim")),
		mcp.WithOutputSchema[SubmitResponse](),
	)
	s.mcpServer.AddTool(submitTool, mcp.NewStructuredToolHandler(s.handleSubmit))

	transcriptTool := mcp.NewTool("transcript",
		mcp.WithDescription("Read the full transcript of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[TranscriptResponse](),
	)
	s.mcpServer.AddTool(transcriptTool, mcp.NewStructuredToolHandler(s.handleTranscript))

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the IDs of all stored sessions."),
	), s.handleListSessions)

	s.mcpServer.AddTool(mcp.NewTool("delete_session",
		mcp.WithDescription("Delete a session and its transcript."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	), s.handleDeleteSession)
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest, args submitArgs) (SubmitResponse, error) {
	if args.SessionID == "" {
		return SubmitResponse{}, domain.ErrEmptySessionID
	}

	clean, err := runner.SanitizeInput(args.Text)
	if err != nil {
		s.logger.Warn("MCP Submit: Input rejected", "err", err, "size", len(args.Text))
		return SubmitResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	rich, err := runner.SubmitAndCollect(ctx, bound{s.sessions, args.SessionID}, clean)
	if rich == nil {
		return SubmitResponse{}, fmt.Errorf("submit failed: %w", err)
	}

	resp := SubmitResponse{
		SessionID:  args.SessionID,
		Entries:    rich.Entries,
		Transcript: rich.Transcript,
	}
	if err != nil {
		s.logger.Error("MCP Submit: Persistence failed", "session_id", args.SessionID, "err", err)
		resp.Warning = err.Error()
	}
	return resp, nil
}

func (s *Server) handleTranscript(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (TranscriptResponse, error) {
	tr, err := s.sessions.Transcript(ctx, args.SessionID)
	if err != nil {
		return TranscriptResponse{}, fmt.Errorf("transcript failed: %w", err)
	}
	return TranscriptResponse{SessionID: args.SessionID, Transcript: tr}, nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if ids == nil {
		ids = []string{}
	}
	jsonBytes, _ := json.Marshal(ids)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s", id)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(sessionsURI, "Stored sessions",
		mcp.WithResourceDescription("IDs of all stored sessions"),
		mcp.WithMIMEType("application/json"),
	), s.readSessions)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(sessionURITemplate, "Session transcript",
		mcp.WithTemplateDescription("Transcript of one session"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readSession)
}

func (s *Server) readSessions(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	jsonBytes, _ := json.Marshal(ids)
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      sessionsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func (s *Server) readSession(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, sessionURIPrefix)
	if id == uri || id == "" {
		return nil, fmt.Errorf("invalid session uri %q", uri)
	}

	tr, err := s.sessions.Transcript(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	jsonBytes, _ := json.Marshal(tr)
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

// bound adapts Sessions to a runner.Submitter for one ID.
type bound struct {
	sessions Sessions
	id       string
}

func (b bound) Submit(ctx context.Context, text string) (domain.Transcript, error) {
	return b.sessions.Submit(ctx, b.id, text)
}

func (b bound) Transcript(ctx context.Context) (domain.Transcript, error) {
	return b.sessions.Transcript(ctx, b.id)
}
