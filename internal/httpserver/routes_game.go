// internal/httpserver/routes_game.go
//
// Session-scoped game routes:
//   - GET  /game        → current view (target hidden while playing)
//   - POST /game/key    → forward one raw key ("A".."Z", "Enter", "Backspace")
//   - POST /game/new    → start the next game (409 while gated)
//   - POST /game/reset  → manual reset of every board
//   - POST /settings    → word length, mode and theme flags
//   - GET  /stats       → finished-game statistics for the session

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/buttonwang/wordly/internal/daily"
	"github.com/buttonwang/wordly/internal/engine"
	"github.com/buttonwang/wordly/internal/game"
)

// mountGame registers the game routes on a router that already carries withSession.
func (s *Server) mountGame(r chi.Router) {
	r.Get("/game", s.handleView)
	r.Post("/game/key", s.handleKey)
	r.Post("/game/new", s.handleNewGame)
	r.Post("/game/reset", s.handleReset)
	r.Post("/settings", s.handleSettings)
	r.Get("/stats", s.handleStats)
}

// writeView encodes v, hiding the target until the board is finished.
func writeView(w http.ResponseWriter, v engine.View) {
	if !v.Game.Status.Over() {
		v.Game.Target = ""
	}
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeView(w, engineFrom(r).View())
}

// keyReq is the payload for POST /game/key.
type keyReq struct {
	Key string `json:"key"`
}

// handleKey forwards a key. Ignored keys still answer 200 with the unchanged view.
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req keyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
		return
	}
	writeView(w, engineFrom(r).Press(r.Context(), req.Key))
}

// handleNewGame starts the next game or reports why it cannot start yet.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	v, err := engineFrom(r).NewGame(r.Context())
	switch {
	case errors.Is(err, engine.ErrCooldownActive):
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "cooldown_active", "cooldown": v.Cooldown})
		return
	case errors.Is(err, engine.ErrDailyLimit):
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "daily_limit", "untilMidnight": v.UntilMidnight})
		return
	case err != nil:
		log.Error().Err(err).Msg("new game")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	writeView(w, v)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeView(w, engineFrom(r).Reset(r.Context()))
}

// settingsReq is the payload for POST /settings; absent fields are left alone.
type settingsReq struct {
	WordLength *int  `json:"wordLength"`
	Unlimited  *bool `json:"unlimited"`
	DarkMode   *bool `json:"darkMode"`
}

// handleSettings validates the whole request before applying any field.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if req.WordLength != nil && !game.WordLength(*req.WordLength).Valid() {
		http.Error(w, `{"error":"invalid_word_length"}`, http.StatusBadRequest)
		return
	}

	e := engineFrom(r)
	if req.Unlimited != nil {
		e.SetUnlimited(r.Context(), *req.Unlimited)
	}
	if req.DarkMode != nil {
		e.SetDarkMode(r.Context(), *req.DarkMode)
	}
	if req.WordLength != nil {
		if _, err := e.SetWordLength(r.Context(), game.WordLength(*req.WordLength)); err != nil {
			http.Error(w, `{"error":"invalid_word_length"}`, http.StatusBadRequest)
			return
		}
	}
	writeView(w, e.View())
}

// handleStats returns the session's statistics (empty when no results store is wired).
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.opts.Stats == nil {
		_ = json.NewEncoder(w).Encode(daily.Stats{Distribution: map[int]int{}})
		return
	}
	sid := sessionFrom(r).id
	st, err := s.opts.Stats.Stats(r.Context(), sid)
	if err != nil {
		log.Error().Err(err).Str("session", sid).Msg("stats")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(st)
}
