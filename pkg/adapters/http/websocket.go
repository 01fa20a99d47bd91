package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aretw0/ratlab/pkg/runner"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
)

const wsWriteTimeout = 10 * time.Second

// wsMessage is one frame sent to WebSocket clients: a transcript entry, or a
// system message for rejected input.
type wsMessage struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// ServeWebSocket handles GET /sessions/{id}/ws. Each text frame is one
// submission; the entries it produced are written back as JSON frames.
func (s *Server) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Sessions.Transcript(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.Error("Failed to accept WebSocket", "session_id", id, "err", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			s.Logger.Debug("Failed to close websocket", "session_id", id, "err", closeErr)
		}
	}()
	ws.SetReadLimit(int64(runner.MaxInputSize()) + 1024)

	s.Logger.Info("WebSocket session attached", "session_id", id)
	ctx := r.Context()
	sub := bind(s.Sessions, id)

	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				s.Logger.Debug("WebSocket closed by client", "session_id", id)
			} else {
				s.Logger.Warn("WebSocket read error", "session_id", id, "err", err)
			}
			return
		}
		if typ != websocket.MessageText {
			if err := s.wsWrite(ctx, ws, wsMessage{Kind: runner.KindSystem, Value: "rejected: text frames only"}); err != nil {
				return
			}
			continue
		}

		text, err := runner.SanitizeInput(string(data))
		if err != nil {
			if err := s.wsWrite(ctx, ws, wsMessage{Kind: runner.KindSystem, Value: "rejected: " + err.Error()}); err != nil {
				return
			}
			continue
		}

		resp, err := runner.SubmitAndCollect(ctx, sub, text)
		if resp == nil {
			s.Logger.Warn("WebSocket submit rejected", "session_id", id, "err", err)
			return
		}
		if err != nil {
			s.Logger.Error("WebSocket: Persistence failed", "session_id", id, "err", err)
		}
		for _, e := range resp.Entries {
			if err := s.wsWrite(ctx, ws, wsMessage{Kind: string(e.Kind), Value: e.Value}); err != nil {
				return
			}
		}
	}
}

func (s *Server) wsWrite(ctx context.Context, ws *websocket.Conn, msg wsMessage) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, ws, msg); err != nil {
		s.Logger.Debug("WebSocket write error", "err", err)
		return err
	}
	return nil
}
