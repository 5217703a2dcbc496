// Package enginetest provides a scriptable in-memory engine for tests.
package enginetest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jacokyle01/chess-scheduler/engine"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/notnil/chess"
	"github.com/rs/zerolog"
)

// ErrCrash is the error reported by scripted failures.
var ErrCrash = errors.New("fake engine crashed")

// Engine scripts every Process started through its Factory.
type Engine struct {
	mu           sync.Mutex
	move         string
	score        int
	failSearches int
	failAnalyses int
	startErr     error
	gate         chan struct{}
	ignoreCancel bool

	searches int
	analyses int
	started  int
	closed   int
	limits   []models.SearchLimit
}

func New() *Engine {
	return &Engine{}
}

// Factory returns an engine.Factory that starts fake processes.
func (e *Engine) Factory() engine.Factory {
	return func(cfg engine.Config, log zerolog.Logger) (engine.Process, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.startErr != nil {
			return nil, e.startErr
		}
		e.started++
		return &Process{e: e}, nil
	}
}

// PlayMove makes searches answer uci when it is legal.
// Otherwise the lexically smallest legal move is played.
func (e *Engine) PlayMove(uci string) {
	e.mu.Lock()
	e.move = uci
	e.mu.Unlock()
}

// SetScore sets the evaluation reported, in centipawns from White's side.
func (e *Engine) SetScore(cp int) {
	e.mu.Lock()
	e.score = cp
	e.mu.Unlock()
}

// FailSearches makes the next n searches return ErrCrash.
func (e *Engine) FailSearches(n int) {
	e.mu.Lock()
	e.failSearches = n
	e.mu.Unlock()
}

// FailAnalyses makes the next n analyses return ErrCrash.
func (e *Engine) FailAnalyses(n int) {
	e.mu.Lock()
	e.failAnalyses = n
	e.mu.Unlock()
}

func (e *Engine) FailStart(err error) {
	e.mu.Lock()
	e.startErr = err
	e.mu.Unlock()
}

// Hold blocks subsequent searches until Release. With ignoreCancel the
// held search also ignores its context and answers after Release.
func (e *Engine) Hold(ignoreCancel bool) {
	e.mu.Lock()
	e.gate = make(chan struct{})
	e.ignoreCancel = ignoreCancel
	e.mu.Unlock()
}

func (e *Engine) Release() {
	e.mu.Lock()
	if e.gate != nil {
		close(e.gate)
		e.gate = nil
	}
	e.mu.Unlock()
}

func (e *Engine) Searches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searches
}

func (e *Engine) Analyses() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyses
}

func (e *Engine) Started() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

func (e *Engine) Closed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Limits returns the search limits requested so far.
func (e *Engine) Limits() []models.SearchLimit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.SearchLimit(nil), e.limits...)
}

func (e *Engine) pick(pos *chess.Position) *chess.Move {
	moves := pos.ValidMoves()
	if len(moves) == 0 {
		return nil
	}
	for _, m := range moves {
		if m.String() == e.move {
			return m
		}
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i].String() < moves[j].String() })
	return moves[0]
}

func (e *Engine) result(pos *chess.Position, m *chess.Move, depth int) models.AnalysisResult {
	r := models.AnalysisResult{
		FEN:   pos.String(),
		Score: models.Score{Centipawns: e.score},
		Depth: depth,
		Nodes: int64(depth) * 1000,
	}
	if m != nil {
		r.BestMove = m.String()
		r.PV = []string{m.String()}
	}
	return r
}

// Process is one fake engine session.
type Process struct {
	e *Engine

	mu     sync.Mutex
	closed bool
}

func (p *Process) Analyze(ctx context.Context, pos *chess.Position, maxDepth int, emit func(models.AnalysisResult)) error {
	e := p.e
	e.mu.Lock()
	e.analyses++
	if e.failAnalyses > 0 {
		e.failAnalyses--
		e.mu.Unlock()
		return ErrCrash
	}
	m := e.pick(pos)
	r := e.result(pos, m, 1)
	e.mu.Unlock()

	if m == nil {
		return engine.ErrNoMove
	}
	if !p.Alive() {
		return engine.ErrClosed
	}
	emit(r)
	<-ctx.Done()
	return ctx.Err()
}

// BestMove reports its result through emit once before returning it.
func (p *Process) BestMove(ctx context.Context, pos *chess.Position, limit models.SearchLimit, emit func(models.AnalysisResult)) (*chess.Move, models.AnalysisResult, error) {
	e := p.e
	e.mu.Lock()
	e.searches++
	e.limits = append(e.limits, limit)
	if e.failSearches > 0 {
		e.failSearches--
		e.mu.Unlock()
		return nil, models.AnalysisResult{}, ErrCrash
	}
	gate, stubborn := e.gate, e.ignoreCancel
	e.mu.Unlock()

	if gate != nil {
		if stubborn {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, models.AnalysisResult{}, ctx.Err()
			}
		}
	}
	if !stubborn && ctx.Err() != nil {
		return nil, models.AnalysisResult{}, ctx.Err()
	}

	e.mu.Lock()
	m := e.pick(pos)
	r := e.result(pos, m, 10)
	e.mu.Unlock()
	if m == nil {
		return nil, models.AnalysisResult{}, engine.ErrNoMove
	}
	if emit != nil {
		emit(r)
	}
	return m, r, nil
}

func (p *Process) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.e.mu.Lock()
		p.e.closed++
		p.e.mu.Unlock()
	}
	return nil
}
