package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
	"github.com/DoyleJ11/playerid-backend/internal/engine"
	"github.com/DoyleJ11/playerid-backend/internal/hub"
	"github.com/DoyleJ11/playerid-backend/internal/session"
	"github.com/DoyleJ11/playerid-backend/internal/types"
)

var errUnknownType = errors.New("unknown type")

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
)

func Handler(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}

		s, err := h.Get(r.Context(), id)
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := logger.With(zap.String("session", id), zap.String("client", clientID))

		out := make(chan session.Snapshot, 8)
		if err := s.Join(r.Context(), clientID, out); err != nil {
			return
		}
		defer func() { _ = s.Leave(context.Background(), clientID) }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				writeJSON(writeCtx, conn, types.StateMessage(snap))
			}
			// Session gone or we were dropped as a slow client.
			_ = conn.Close(websocket.StatusGoingAway, "session closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("websocket read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeJSON(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}

			// Snapshots reach the client through the broadcast; only errors
			// are answered directly.
			if _, err := Dispatch(r.Context(), s, cm); err != nil {
				if errors.Is(err, session.ErrClosed) {
					return
				}
				if !errors.Is(err, engine.ErrEmptyPool) {
					writeJSON(r.Context(), conn, types.ErrorMessage(err))
				}
			}
		}
	}
}

// Dispatch routes one client message to the matching session intent.
func Dispatch(ctx context.Context, s *session.Session, m types.ClientMessage) (session.Snapshot, error) {
	switch m.Type {
	case "Start":
		v, err := engine.ParseVariant(m.Variant)
		if err != nil {
			return session.Snapshot{}, err
		}
		d, err := catalog.ParseDifficulty(m.Difficulty)
		if err != nil {
			return session.Snapshot{}, err
		}
		return s.Start(ctx, v, d)
	case "Input":
		return s.InputChange(ctx, m.Text)
	case "Focus":
		return s.Focus(ctx)
	case "Select":
		return s.SelectSuggestion(ctx, m.Text)
	case "Submit":
		return s.Submit(ctx)
	case "Advance":
		return s.Advance(ctx)
	case "Restart":
		return s.Restart(ctx)
	default:
		return session.Snapshot{}, fmt.Errorf("%w: %q", errUnknownType, m.Type)
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
