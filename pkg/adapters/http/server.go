package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/ratlab"
	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/runner"
	"github.com/aretw0/ratlab/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sessions is the part of the session manager the HTTP surface needs.
type Sessions interface {
	Open(ctx context.Context, sessionID string) (*session.Session, bool, error)
	Submit(ctx context.Context, sessionID, text string) (domain.Transcript, error)
	Transcript(ctx context.Context, sessionID string) (domain.Transcript, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

var _ Sessions = (*session.Manager)(nil)

// Server serves the session API.
type Server struct {
	Sessions Sessions
	Streams  *StreamManager
	Logger   *slog.Logger

	gatherer prometheus.Gatherer
	spec     *openapi3.T
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithStreams sets the stream manager feeding the SSE endpoint.
// It must be the one registered as the session manager's entry observer.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewServer builds a Server and loads the embedded OpenAPI document.
func NewServer(sessions Sessions, opts ...Option) (*Server, error) {
	spec, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	s := &Server{
		Sessions: sessions,
		spec:     spec,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.Logger)
	}
	return s, nil
}

// NewHandler creates the HTTP handler for a session manager.
func NewHandler(sessions Sessions, opts ...Option) (http.Handler, error) {
	s, err := NewServer(sessions, opts...)
	if err != nil {
		return nil, err
	}
	return s.Routes(), nil
}

// Routes returns the chi router for s.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.With(s.validateRequest("/sessions")).Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.With(s.validateRequest("/sessions/{id}")).Get("/", s.GetSession)
			r.With(s.validateRequest("/sessions/{id}")).Delete("/", s.DeleteSession)
			r.With(s.validateRequest("/sessions/{id}/submit")).Post("/submit", s.Submit)
			r.Get("/events", s.SubscribeEvents)
			r.Get("/ws", s.ServeWebSocket)
		})
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Ratlab API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

type sessionResponse struct {
	ID         string            `json:"id"`
	Transcript domain.Transcript `json:"transcript"`
}

type submitRequest struct {
	Text string `json:"text"`
}

type submitResponse struct {
	*runner.RichResponse
	Warning string `json:"warning,omitempty"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "ratlab-http",
		"version":     strings.TrimSpace(ratlab.Version),
		"api_version": apiVersion,
	})
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.Logger.Error("List sessions failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// CreateSession handles the POST /sessions request. Without an id in the
// body a UUIDv7 is generated.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	id := body.ID
	if id == "" {
		u, err := uuid.NewV7()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to generate id")
			return
		}
		id = u.String()
	}

	sess, created, err := s.Sessions.Open(r.Context(), id)
	if err != nil {
		s.Logger.Error("Create session failed", "session_id", id, "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	if !created {
		writeError(w, http.StatusConflict, fmt.Sprintf("session %s already exists", id))
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, Transcript: sess.Transcript()})
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tr, err := s.Sessions.Transcript(r.Context(), id)
	if err != nil {
		if status := statusFor(err); status == http.StatusInternalServerError {
			s.Logger.Error("Load session failed", "session_id", id, "err", err)
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Transcript: tr})
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.Logger.Error("Delete session failed", "session_id", id, "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit handles the POST /sessions/{id}/submit request.
// Evaluation failures are part of the transcript and still answer 200.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.Logger.Warn("Submit: Invalid request body", "err", err)
		return
	}

	text, err := runner.SanitizeInput(body.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err))
		s.Logger.Warn("Submit: Input rejected", "err", err, "size", len(body.Text))
		return
	}

	// Submissions only go to sessions that exist.
	if _, err := s.Sessions.Transcript(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp, err := runner.SubmitAndCollect(r.Context(), bind(s.Sessions, id), text)
	if resp == nil {
		s.Logger.Warn("Submit rejected", "session_id", id, "err", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	out := submitResponse{RichResponse: resp}
	if err != nil {
		s.Logger.Error("Submit: Persistence failed", "session_id", id, "err", err)
		out.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

// SubscribeEvents handles the GET /sessions/{id}/events request (SSE).
// The optional kind query filters entries, e.g. ?kind=output,error.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.Sessions.Transcript(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	var kinds map[domain.EntryKind]bool
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kinds = make(map[domain.EntryKind]bool)
		for _, k := range strings.Split(raw, ",") {
			kinds[domain.EntryKind(strings.TrimSpace(k))] = true
		}
	}

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.Logger.Info("SSE: Subscribing to session entries", "session_id", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE: Client disconnected", "session_id", id)
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			if kinds != nil && !kinds[entry.Kind] {
				continue
			}
			fmt.Fprintf(w, "event: entry\ndata: %s\n\n", encodeEntry(entry))
			flusher.Flush()
		}
	}
}

// boundSessions adapts Sessions to a runner.Submitter for one ID.
type boundSessions struct {
	sessions Sessions
	id       string
}

func bind(sessions Sessions, id string) runner.Submitter {
	return boundSessions{sessions: sessions, id: id}
}

func (b boundSessions) Submit(ctx context.Context, text string) (domain.Transcript, error) {
	return b.sessions.Submit(ctx, b.id, text)
}

func (b boundSessions) Transcript(ctx context.Context) (domain.Transcript, error) {
	return b.sessions.Transcript(ctx, b.id)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptySessionID):
		return http.StatusBadRequest
	}
	var terr *domain.TranscriptError
	if errors.As(err, &terr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
