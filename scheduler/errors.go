package scheduler

import (
	"errors"
	"fmt"

	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/notnil/chess"
)

var (
	ErrGameOver         = errors.New("game is over")
	ErrPaused           = errors.New("game is paused")
	ErrNotPaused        = errors.New("game is not paused")
	ErrNotYourTurn      = errors.New("side to move is played by an engine")
	ErrDrawNotAvailable = errors.New("draw offers need a human player")
	ErrStopped          = errors.New("scheduler is not running")
)

// IllegalMoveError rejects a move that is not legal in the current position.
type IllegalMoveError struct {
	Move string
	FEN  string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s in %s", e.Move, e.FEN)
}

// EngineUnavailableError means an engine side has no engine configured.
type EngineUnavailableError struct {
	Side chess.Color
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("no engine configured for %s", models.ColorName(e.Side))
}

// EngineFailureError reports a crashed or misbehaving engine. Fatal means
// automated play for Side is suspended until the engines are reconfigured.
type EngineFailureError struct {
	Side     chess.Color
	Slot     int
	Role     models.Role
	Attempts int
	Fatal    bool
	Err      error
}

func (e *EngineFailureError) Error() string {
	state := "restarting"
	if e.Fatal {
		state = "suspended"
	}
	return fmt.Sprintf("engine %d (%s, %s) failed %d time(s), %s: %v",
		e.Slot+1, models.ColorName(e.Side), e.Role, e.Attempts, state, e.Err)
}

func (e *EngineFailureError) Unwrap() error {
	return e.Err
}

// TimeExpiredError is the terminal condition of a flag fall.
type TimeExpiredError struct {
	Side chess.Color
}

func (e *TimeExpiredError) Error() string {
	return fmt.Sprintf("%s ran out of time", models.ColorName(e.Side))
}
