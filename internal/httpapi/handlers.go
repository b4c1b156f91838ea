package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
	"github.com/DoyleJ11/playerid-backend/internal/engine"
	"github.com/DoyleJ11/playerid-backend/internal/hub"
	"github.com/DoyleJ11/playerid-backend/internal/names"
	"github.com/DoyleJ11/playerid-backend/internal/records"
	"github.com/DoyleJ11/playerid-backend/internal/session"
	"github.com/DoyleJ11/playerid-backend/internal/types"
	wire "github.com/DoyleJ11/playerid-backend/pkg/types"
)

const maxSuggestLimit = 20

type Deps struct {
	Hub     *hub.Hub
	Index   *names.Index
	Records *records.Keeper
	Options session.Options
	Logger  *zap.Logger
	Now     func() time.Time
}

type createRequest struct {
	Variant    string `json:"variant"`
	Difficulty string `json:"difficulty"`
}

// CreateSession mounts a mode screen: a new session, already started.
func CreateSession(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		v, err := engine.ParseVariant(req.Variant)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		diff, err := catalog.ParseDifficulty(req.Difficulty)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		created, err := d.Hub.Create(r.Context(), d.Options)
		if err != nil {
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}
		snap, err := created.Session.Start(r.Context(), v, diff)
		if err != nil && !errors.Is(err, engine.ErrEmptyPool) {
			d.Logger.Error("session start failed", zap.String("session", created.ID), zap.Error(err))
			_ = d.Hub.Remove(r.Context(), created.ID)
			http.Error(w, "failed to start session", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, wire.CreatedSession{ID: created.ID, Snapshot: types.ToWire(snap)})
	}
}

// DeleteSession unmounts: timers are cancelled and the session forgotten.
func DeleteSession(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := d.Hub.Remove(r.Context(), chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, hub.ErrSessionNotFound):
			http.Error(w, "session not found", http.StatusNotFound)
		case err != nil:
			http.Error(w, "failed to remove session", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func Suggest(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := names.DefaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxSuggestLimit)
		}
		writeJSON(w, http.StatusOK, wire.Suggestions{Names: d.Index.Suggest(r.URL.Query().Get("q"), limit)})
	}
}

func Records(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := engine.DateKey(d.Now(), d.Options.DailyLocation)
		writeJSON(w, http.StatusOK, wire.Records{
			HighScore:      d.Records.HighScore(),
			DailyDate:      date,
			DailyCompleted: d.Records.DailyDone(r.Context(), date),
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
