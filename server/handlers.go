package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/notnil/chess"
)

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return false
	}
	return true
}

// respond answers with the game status after a successful command.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSimple(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, fn(r.Context()))
	}
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Move string `json:"move"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, r, s.ctrl.Move(r.Context(), req.Move))
}

func (s *Server) handleSetPosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FEN string `json:"fen"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, r, s.ctrl.SetPosition(r.Context(), req.FEN))
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	cfg := s.store.Get()
	req := struct {
		Mode       string `json:"mode"`
		HumanColor string `json:"human_color"`
	}{Mode: cfg.GameMode, HumanColor: cfg.HumanColor}
	if !decode(w, r, &req) {
		return
	}
	mode, err := models.ParseGameMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	human, err := models.ParseColor(req.HumanColor)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.respond(w, r, s.ctrl.NewGame(r.Context(), mode, human))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	role, err := models.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.respond(w, r, s.ctrl.Cancel(r.Context(), role))
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	hint, ok, err := s.ctrl.Hint(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, hint)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	moves, err := s.ctrl.BookMoves(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moves": moves})
}

func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Side    string  `json:"side"`
		Seconds float64 `json:"seconds"`
		Add     bool    `json:"add"`
	}
	if !decode(w, r, &req) {
		return
	}
	side, err := models.ParseColor(req.Side)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Add {
		err = s.ctrl.AddTime(r.Context(), side, req.Seconds)
	} else {
		err = s.ctrl.SetClock(r.Context(), side, req.Seconds)
	}
	s.respond(w, r, err)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	res, err := s.ctrl.OfferDraw(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Side string `json:"side"`
	}
	if !decode(w, r, &req) {
		return
	}
	side := chess.NoColor
	if req.Side != "" {
		c, err := models.ParseColor(req.Side)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		side = c
	}
	s.respond(w, r, s.ctrl.Resign(r.Context(), side))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Get())
}

// handleSetConfig merges the posted fields over the current settings.
func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.store.Get()
	if !decode(w, r, &cfg) {
		return
	}
	if err := cfg.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.ctrl.Reconfigure(r.Context(), cfg); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.Update(cfg); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info().Str("strength", cfg.Strength).Int("book_max_depth", cfg.BookMaxDepth).Msg("settings updated")
	s.hub.broadcast("settings", cfg)
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"games": s.archive.Games()})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	chart, ok := s.archive.Chart(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown game"})
		return
	}
	writeJSON(w, http.StatusOK, chart)
}
