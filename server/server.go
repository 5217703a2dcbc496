// Package server exposes a running game over HTTP and streams scheduler
// events to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jacokyle01/chess-scheduler/book"
	"github.com/jacokyle01/chess-scheduler/config"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/jacokyle01/chess-scheduler/rules"
	"github.com/jacokyle01/chess-scheduler/scheduler"
	"github.com/notnil/chess"
	"github.com/rs/zerolog"
)

// Controller is the game the server drives. *scheduler.Scheduler implements it.
type Controller interface {
	Move(ctx context.Context, uci string) error
	Undo(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	SetPosition(ctx context.Context, fen string) error
	NewGame(ctx context.Context, mode models.GameMode, human chess.Color) error
	Reconfigure(ctx context.Context, cfg config.Config) error
	Cancel(ctx context.Context, role models.Role) error
	Hint(ctx context.Context) (scheduler.Hint, bool, error)
	BookMoves(ctx context.Context) ([]scheduler.BookMove, error)
	SetClock(ctx context.Context, side chess.Color, seconds float64) error
	AddTime(ctx context.Context, side chess.Color, seconds float64) error
	OfferDraw(ctx context.Context) (scheduler.DrawResult, error)
	Resign(ctx context.Context, side chess.Color) error
	Snapshot(ctx context.Context) (scheduler.Snapshot, error)
}

// Server serves the HTTP API for one game.
type Server struct {
	ctrl    Controller
	hub     *Hub
	archive *Archive
	store   *config.Store
	log     zerolog.Logger
}

// New creates a Server. hub and archive should also be registered as
// scheduler listeners so clients and chart storage see every event.
func New(ctrl Controller, hub *Hub, archive *Archive, store *config.Store, log zerolog.Logger) *Server {
	return &Server{ctrl: ctrl, hub: hub, archive: archive, store: store, log: log}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/move", s.handleMove)
	r.Post("/api/undo", s.handleSimple(s.ctrl.Undo))
	r.Post("/api/pause", s.handleSimple(s.ctrl.Pause))
	r.Post("/api/resume", s.handleSimple(s.ctrl.Resume))
	r.Post("/api/position", s.handleSetPosition)
	r.Post("/api/new", s.handleNewGame)
	r.Post("/api/cancel/{role}", s.handleCancel)
	r.Get("/api/hint", s.handleHint)
	r.Get("/api/book", s.handleBook)
	r.Post("/api/clock", s.handleClock)
	r.Post("/api/draw", s.handleDraw)
	r.Post("/api/resign", s.handleResign)
	r.Get("/api/config", s.handleGetConfig)
	r.Post("/api/config", s.handleSetConfig)
	r.Get("/api/games", s.handleGames)
	r.Get("/api/games/{id}/chart", s.handleChart)
	r.Get("/ws", s.handleWS)
	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps scheduler errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		illegal     *scheduler.IllegalMoveError
		unavailable *scheduler.EngineUnavailableError
		corrupt     *book.CorruptError
	)
	switch {
	case errors.As(err, &illegal), errors.Is(err, rules.ErrInvalidFEN):
		return http.StatusBadRequest
	case errors.Is(err, scheduler.ErrGameOver),
		errors.Is(err, scheduler.ErrPaused),
		errors.Is(err, scheduler.ErrNotPaused),
		errors.Is(err, scheduler.ErrNotYourTurn),
		errors.Is(err, scheduler.ErrDrawNotAvailable):
		return http.StatusConflict
	case errors.As(err, &unavailable), errors.Is(err, scheduler.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.As(err, &corrupt):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var _ Controller = (*scheduler.Scheduler)(nil)
