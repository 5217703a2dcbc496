package scheduler

import (
	"fmt"

	"github.com/jacokyle01/chess-scheduler/clock"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/jacokyle01/chess-scheduler/rules"
	"github.com/notnil/chess"
)

// State is the scheduler's state machine position.
type State int

const (
	AwaitingHuman State = iota
	AwaitingEngine
	BothEnginesAutoplay
	Paused
	GameOver
)

func (s State) String() string {
	switch s {
	case AwaitingHuman:
		return "awaiting_human"
	case AwaitingEngine:
		return "awaiting_engine"
	case BothEnginesAutoplay:
		return "both_engines_autoplay"
	case Paused:
		return "paused"
	case GameOver:
		return "game_over"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for v := AwaitingHuman; v <= GameOver; v++ {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown scheduler state %q", b)
}

// Turn describes who is expected to act. Side is the side to move.
type Turn struct {
	State State       `json:"state"`
	Side  chess.Color `json:"-"`
	Slot  int         `json:"slot"`
}

// BoardUpdate is published after every board change.
type BoardUpdate struct {
	GameID   string   `json:"game_id"`
	FEN      string   `json:"fen"`
	LastMove string   `json:"last_move,omitempty"`
	LastSAN  string   `json:"last_san,omitempty"`
	Moves    []string `json:"moves"`
}

// Analysis is an accepted engine report for the current position.
type Analysis struct {
	Role   models.Role           `json:"-"`
	Side   chess.Color           `json:"-"`
	Epoch  uint64                `json:"epoch"`
	Result models.AnalysisResult `json:"result"`
	SAN    []string              `json:"san"`
}

// Listener receives the scheduler's output. Methods are called from the
// scheduler goroutine and must not block.
type Listener interface {
	BoardChanged(BoardUpdate)
	ClockChanged(clock.State)
	AnalysisUpdated(Analysis)
	TurnChanged(Turn)
	ChartAppended(models.ChartPoint)
	GameOver(rules.Ending)
	EngineError(error)
}

// NopListener ignores everything. Embed it to implement part of Listener.
type NopListener struct{}

func (NopListener) BoardChanged(BoardUpdate)        {}
func (NopListener) ClockChanged(clock.State)        {}
func (NopListener) AnalysisUpdated(Analysis)        {}
func (NopListener) TurnChanged(Turn)                {}
func (NopListener) ChartAppended(models.ChartPoint) {}
func (NopListener) GameOver(rules.Ending)           {}
func (NopListener) EngineError(error)               {}

type multiListener []Listener

// Multi fans every notification out to ls in order.
func Multi(ls ...Listener) Listener {
	return multiListener(ls)
}

func (m multiListener) BoardChanged(u BoardUpdate) {
	for _, l := range m {
		l.BoardChanged(u)
	}
}

func (m multiListener) ClockChanged(s clock.State) {
	for _, l := range m {
		l.ClockChanged(s)
	}
}

func (m multiListener) AnalysisUpdated(a Analysis) {
	for _, l := range m {
		l.AnalysisUpdated(a)
	}
}

func (m multiListener) TurnChanged(t Turn) {
	for _, l := range m {
		l.TurnChanged(t)
	}
}

func (m multiListener) ChartAppended(p models.ChartPoint) {
	for _, l := range m {
		l.ChartAppended(p)
	}
}

func (m multiListener) GameOver(e rules.Ending) {
	for _, l := range m {
		l.GameOver(e)
	}
}

func (m multiListener) EngineError(err error) {
	for _, l := range m {
		l.EngineError(err)
	}
}
