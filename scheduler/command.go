package scheduler

import (
	"context"

	"github.com/jacokyle01/chess-scheduler/config"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/notnil/chess"
)

// command is a request handled on the scheduler goroutine. Every variant
// is matched in (*Scheduler).handle.
type command interface {
	name() string
}

type (
	moveCmd        struct{ uci string }
	undoCmd        struct{}
	pauseCmd       struct{}
	resumeCmd      struct{}
	setPositionCmd struct{ fen string }
	newGameCmd     struct {
		mode  models.GameMode
		human chess.Color
	}
	reconfigureCmd struct{ cfg config.Config }
	cancelCmd      struct{ role models.Role }
	hintCmd        struct{}
	bookCmd        struct{}
	clockCmd       struct {
		side    chess.Color
		seconds float64
		add     bool
	}
	drawCmd     struct{}
	resignCmd   struct{ side chess.Color }
	snapshotCmd struct{}
)

func (moveCmd) name() string        { return "move" }
func (undoCmd) name() string        { return "undo" }
func (pauseCmd) name() string       { return "pause" }
func (resumeCmd) name() string      { return "resume" }
func (setPositionCmd) name() string { return "set_position" }
func (newGameCmd) name() string     { return "new_game" }
func (reconfigureCmd) name() string { return "reconfigure" }
func (cancelCmd) name() string      { return "cancel" }
func (hintCmd) name() string        { return "hint" }
func (bookCmd) name() string        { return "book" }
func (clockCmd) name() string       { return "clock" }
func (drawCmd) name() string        { return "draw" }
func (resignCmd) name() string      { return "resign" }
func (snapshotCmd) name() string    { return "snapshot" }

type request struct {
	cmd   command
	reply chan response
}

type response struct {
	value any
	err   error
}

// do hands cmd to the scheduler goroutine and waits for its answer.
func (s *Scheduler) do(ctx context.Context, cmd command) (any, error) {
	req := request{cmd: cmd, reply: make(chan response, 1)}
	select {
	case s.cmds <- req:
	case <-s.quit:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.value, resp.err
	case <-s.quit:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Move plays a human move given in UCI notation.
func (s *Scheduler) Move(ctx context.Context, uci string) error {
	_, err := s.do(ctx, moveCmd{uci: uci})
	return err
}

// Undo takes back the last move.
func (s *Scheduler) Undo(ctx context.Context) error {
	_, err := s.do(ctx, undoCmd{})
	return err
}

// Pause stops the clocks and any running search.
func (s *Scheduler) Pause(ctx context.Context) error {
	_, err := s.do(ctx, pauseCmd{})
	return err
}

func (s *Scheduler) Resume(ctx context.Context) error {
	_, err := s.do(ctx, resumeCmd{})
	return err
}

// SetPosition starts a human-vs-engine game from fen with the human to move.
func (s *Scheduler) SetPosition(ctx context.Context, fen string) error {
	_, err := s.do(ctx, setPositionCmd{fen: fen})
	return err
}

// NewGame starts a game from the standard position.
func (s *Scheduler) NewGame(ctx context.Context, mode models.GameMode, human chess.Color) error {
	_, err := s.do(ctx, newGameCmd{mode: mode, human: human})
	return err
}

// Reconfigure applies new settings and restarts the engines.
func (s *Scheduler) Reconfigure(ctx context.Context, cfg config.Config) error {
	_, err := s.do(ctx, reconfigureCmd{cfg: cfg})
	return err
}

// Cancel stops the worker running for role, if any.
func (s *Scheduler) Cancel(ctx context.Context, role models.Role) error {
	_, err := s.do(ctx, cancelCmd{role: role})
	return err
}

// Hint is the engine's preferred move in the current position.
type Hint struct {
	Move  string       `json:"move"`
	SAN   string       `json:"san"`
	Score models.Score `json:"score"`
	Depth int          `json:"depth"`
}

// Hint returns the best move of the latest analysis. ok is false when no
// analysis of the current position has arrived yet.
func (s *Scheduler) Hint(ctx context.Context) (h Hint, ok bool, err error) {
	v, err := s.do(ctx, hintCmd{})
	if err != nil || v == nil {
		return Hint{}, false, err
	}
	return v.(Hint), true, nil
}

// BookMove is a book candidate for the current position.
type BookMove struct {
	Move   string `json:"move"`
	SAN    string `json:"san"`
	Weight int    `json:"weight"`
}

func (s *Scheduler) BookMoves(ctx context.Context) ([]BookMove, error) {
	v, err := s.do(ctx, bookCmd{})
	if err != nil {
		return nil, err
	}
	return v.([]BookMove), nil
}

// SetClock puts side's clock at seconds.
func (s *Scheduler) SetClock(ctx context.Context, side chess.Color, seconds float64) error {
	_, err := s.do(ctx, clockCmd{side: side, seconds: seconds})
	return err
}

// AddTime adds seconds, possibly negative, to side's clock.
func (s *Scheduler) AddTime(ctx context.Context, side chess.Color, seconds float64) error {
	_, err := s.do(ctx, clockCmd{side: side, seconds: seconds, add: true})
	return err
}

// DrawResult is the answer to a draw offer.
type DrawResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

// OfferDraw offers or claims a draw on behalf of the human player.
func (s *Scheduler) OfferDraw(ctx context.Context) (DrawResult, error) {
	v, err := s.do(ctx, drawCmd{})
	if err != nil {
		return DrawResult{}, err
	}
	return v.(DrawResult), nil
}

// Resign ends the game as a loss for side.
func (s *Scheduler) Resign(ctx context.Context, side chess.Color) error {
	_, err := s.do(ctx, resignCmd{side: side})
	return err
}

func (s *Scheduler) Snapshot(ctx context.Context) (Snapshot, error) {
	v, err := s.do(ctx, snapshotCmd{})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}
