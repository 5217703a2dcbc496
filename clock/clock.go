// Package clock implements the two countdown clocks of a game.
package clock

import "github.com/notnil/chess"

// Pair holds remaining time per side in seconds. It is not safe for
// concurrent use; the scheduler goroutine owns it.
type Pair struct {
	initial   float64
	increment float64
	low       float64
	unit      float64

	remaining [2]float64
	expired   [2]bool
}

// State is a read-only view of a Pair.
type State struct {
	White     float64 `json:"white"`
	Black     float64 `json:"black"`
	WhiteLow  bool    `json:"white_low"`
	BlackLow  bool    `json:"black_low"`
	Increment float64 `json:"increment"`
	Timed     bool    `json:"timed"`
}

// New creates clocks with initial seconds each. unit is how much one Tick
// takes off; lowThreshold marks the low-time state.
func New(initial, increment, lowThreshold, unit float64) *Pair {
	if unit <= 0 {
		unit = 1
	}
	p := &Pair{low: lowThreshold, unit: unit}
	p.Reset(initial, increment)
	return p
}

func index(side chess.Color) int {
	if side == chess.Black {
		return 1
	}
	return 0
}

// Reset starts both clocks again from initial.
func (p *Pair) Reset(initial, increment float64) {
	if initial < 0 {
		initial = 0
	}
	if increment < 0 {
		increment = 0
	}
	p.initial = initial
	p.increment = increment
	p.remaining = [2]float64{initial, initial}
	p.expired = [2]bool{}
}

// Timed reports whether the game has a time control. Untimed clocks never tick.
func (p *Pair) Timed() bool {
	return p.initial > 0
}

// Tick takes one unit off side's clock. It returns true exactly once, on
// the tick that reaches zero.
func (p *Pair) Tick(side chess.Color) bool {
	i := index(side)
	if !p.Timed() || p.expired[i] {
		return false
	}
	p.remaining[i] -= p.unit
	if p.remaining[i] <= 0 {
		p.remaining[i] = 0
		p.expired[i] = true
		return true
	}
	return false
}

// AddIncrement credits side with the per-move increment.
func (p *Pair) AddIncrement(side chess.Color) {
	if p.increment > 0 && !p.expired[index(side)] {
		p.remaining[index(side)] += p.increment
	}
}

// Set puts side's clock at seconds.
func (p *Pair) Set(side chess.Color, seconds float64) {
	i := index(side)
	if seconds < 0 {
		seconds = 0
	}
	p.remaining[i] = seconds
	p.expired[i] = false
}

// Add changes side's clock by seconds, which may be negative.
func (p *Pair) Add(side chess.Color, seconds float64) {
	p.Set(side, p.remaining[index(side)]+seconds)
}

func (p *Pair) Remaining(side chess.Color) float64 {
	return p.remaining[index(side)]
}

func (p *Pair) Expired(side chess.Color) bool {
	return p.expired[index(side)]
}

func (p *Pair) Increment() float64 {
	return p.increment
}

// Low reports whether side is below the low-time threshold.
func (p *Pair) Low(side chess.Color) bool {
	return p.Timed() && p.remaining[index(side)] < p.low
}

func (p *Pair) State() State {
	return State{
		White:     p.remaining[0],
		Black:     p.remaining[1],
		WhiteLow:  p.Low(chess.White),
		BlackLow:  p.Low(chess.Black),
		Increment: p.increment,
		Timed:     p.Timed(),
	}
}
