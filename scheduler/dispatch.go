package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jacokyle01/chess-scheduler/book"
	"github.com/jacokyle01/chess-scheduler/config"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/jacokyle01/chess-scheduler/rules"
	"github.com/jacokyle01/chess-scheduler/worker"
	"github.com/notnil/chess"
)

// fallbackDepth bounds searches that have no clock to budget against.
const fallbackDepth = 15

// dispatch starts the work the current position needs: analysis for the
// side to move, plus a book move or a search when that side is automated.
func (s *Scheduler) dispatch() {
	if s.ending != nil || s.paused {
		return
	}
	side := s.board.Turn()
	idx := s.slotFor(side)
	slot := s.slots[idx]

	if !slot.Configured() {
		if s.automated(side) {
			err := &EngineUnavailableError{Side: side}
			s.log.Warn().Err(err).Msg("automated dispatch skipped")
			s.listener.EngineError(err)
		}
		return
	}
	if s.suspend[idx] {
		s.log.Debug().Int("slot", idx).Msg("slot suspended, dispatch skipped")
		return
	}

	if s.automated(side) {
		if m, ok := s.bookMove(); ok {
			s.log.Info().Str("move", m.String()).Str("side", models.ColorName(side)).Msg("book move")
			s.commit(m)
			return
		}
		s.start(models.RoleAnalysis)
		s.start(models.RoleSearch)
		return
	}
	s.start(models.RoleAnalysis)
}

// start replaces the worker for role with one for the current position.
func (s *Scheduler) start(role models.Role) {
	s.cancel(role)

	side := s.board.Turn()
	idx := s.slotFor(side)
	s.epochs[role]++
	job := models.WorkerJob{
		ID:       uuid.NewString(),
		Role:     role,
		Slot:     idx,
		Side:     side,
		Epoch:    s.epochs[role],
		FEN:      s.board.FEN(),
		Position: s.board.Position(),
	}
	if role == models.RoleSearch {
		job.Limit = s.searchLimit(side)
	}
	s.handles[role] = s.launcher.Start(s.ctx, s.slots[idx], job)
}

// cancel invalidates the worker for role and waits for it to stop. A worker
// that misses the grace period loses its engine binding.
func (s *Scheduler) cancel(role models.Role) {
	h := s.handles[role]
	if h == nil {
		return
	}
	s.handles[role] = nil
	if !h.Stop(s.cfg.StopGrace) {
		s.log.Warn().
			Str("role", role.String()).
			Uint64("epoch", h.Epoch()).
			Dur("grace", s.cfg.StopGrace).
			Msg("worker ignored stop, engine binding torn down")
	}
}

func (s *Scheduler) cancelAll() {
	s.cancel(models.RoleSearch)
	s.cancel(models.RoleAnalysis)
}

// searchLimit derives the search budget for side from the strength policy.
func (s *Scheduler) searchLimit(side chess.Color) models.SearchLimit {
	switch s.strength.Kind {
	case config.FixedDepth:
		return models.SearchLimit{Depth: s.strength.Value}
	case config.FixedNodes:
		return models.SearchLimit{Nodes: s.strength.Value}
	}
	remaining := s.clocks.Remaining(side)
	if !s.clocks.Timed() || remaining <= 0 {
		return models.SearchLimit{Depth: fallbackDepth}
	}
	seconds := remaining/40 + s.clocks.Increment()
	seconds = max(seconds, 0.1)
	seconds = min(seconds, remaining*0.3)
	return models.SearchLimit{MoveTime: time.Duration(seconds * float64(time.Second))}
}

// bookMove consults the opening book and re-validates its answer.
func (s *Scheduler) bookMove() (*chess.Move, bool) {
	entry, ok, err := s.book.Select(s.board.Position(), s.cfg.BookMaxDepth)
	if err != nil {
		s.bookCorrupt(err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	m, legal := s.board.Find(entry.Move)
	if !legal {
		s.bookCorrupt(fmt.Errorf("book move %s is not legal in %s", entry.Move, s.board.FEN()))
		return nil, false
	}
	return m, true
}

func (s *Scheduler) bookCorrupt(err error) {
	var corrupt *book.CorruptError
	if !errors.As(err, &corrupt) {
		err = &book.CorruptError{Source: s.cfg.BookPath, Err: err}
	}
	s.book.Disable(err)
	s.listener.EngineError(err)
}

// onEvent applies a worker event if it belongs to the live worker of its role.
func (s *Scheduler) onEvent(ev worker.Event) {
	h := s.handles[ev.Role]
	if h == nil || h.Epoch() != ev.Epoch {
		s.stale++
		s.log.Debug().
			Str("role", ev.Role.String()).
			Str("kind", ev.Kind.String()).
			Uint64("epoch", ev.Epoch).
			Uint64("current", s.epochs[ev.Role]).
			Msg("stale worker event dropped")
		return
	}
	if ev.Kind.Terminal() {
		s.handles[ev.Role] = nil
	}

	switch ev.Kind {
	case worker.KindInfo:
		s.failures[ev.Slot][ev.Role] = 0
		s.onInfo(ev)
	case worker.KindBestMove:
		m, ok := s.board.Legal(ev.Move)
		if !ok {
			s.onFailure(ev, &IllegalMoveError{Move: fmt.Sprint(ev.Move), FEN: s.board.FEN()})
			return
		}
		s.failures[ev.Slot][ev.Role] = 0
		s.log.Info().
			Str("move", m.String()).
			Str("side", models.ColorName(ev.Side)).
			Int("depth", ev.Result.Depth).
			Int("cp", ev.Result.Score.Centipawns).
			Msg("engine move")
		s.commit(m)
	case worker.KindNoMove:
		s.log.Warn().Str("role", ev.Role.String()).Str("fen", s.board.FEN()).Msg("engine found no move")
	case worker.KindFailure:
		s.onFailure(ev, ev.Err)
	}
}

func (s *Scheduler) onInfo(ev worker.Event) {
	r := ev.Result.Clone()
	if r.FEN != "" && rules.PositionKey(r.FEN) != rules.PositionKey(s.board.FEN()) {
		return
	}
	s.lastEval = &r
	s.listener.AnalysisUpdated(Analysis{
		Role:   ev.Role,
		Side:   ev.Side,
		Epoch:  ev.Epoch,
		Result: r,
		SAN:    s.board.SANLine(r.PV),
	})
}

// onFailure restarts the failed role once. A second failure of the same
// role in a row suspends automated play for the slot.
func (s *Scheduler) onFailure(ev worker.Event, cause error) {
	idx := ev.Slot
	s.failures[idx][ev.Role]++
	s.slots[idx].Teardown(ev.Role)

	ferr := &EngineFailureError{
		Side:     ev.Side,
		Slot:     idx,
		Role:     ev.Role,
		Attempts: s.failures[idx][ev.Role],
		Err:      cause,
	}
	if ferr.Attempts >= 2 {
		ferr.Fatal = true
		s.suspend[idx] = true
		for role, h := range s.handles {
			if h != nil && h.Job().Slot == idx {
				s.cancel(models.Role(role))
			}
		}
		s.log.Error().Err(cause).Int("slot", idx).Msg("engine suspended")
		s.listener.EngineError(ferr)
		s.listener.TurnChanged(s.turn())
		return
	}

	s.listener.EngineError(ferr)
	if s.ending == nil && !(s.paused && ev.Role == models.RoleSearch) {
		s.log.Info().Int("slot", idx).Str("role", ev.Role.String()).Msg("restarting engine work")
		s.start(ev.Role)
	}
}

// commit plays a legal move and hands the turn on.
func (s *Scheduler) commit(m *chess.Move) {
	side := s.board.Turn()
	san := s.board.SAN(m)
	if err := s.board.Apply(m); err != nil {
		s.log.Error().Err(err).Msg("commit rejected")
		return
	}
	s.clocks.AddIncrement(side)
	s.cancelAll()

	point := models.ChartPoint{Ply: s.board.MoveCount(), SAN: san}
	if s.lastEval != nil {
		point.Eval = s.lastEval.Score.ChartValue()
		point.HasEval = true
	}
	s.chart.Append(point)
	s.lastEval = nil

	s.log.Info().
		Str("game", s.gameID).
		Str("side", models.ColorName(side)).
		Str("move", m.String()).
		Str("san", san).
		Msg("move played")
	s.publishBoard()
	s.listener.ClockChanged(s.clocks.State())
	s.listener.ChartAppended(point)

	if end, over := s.board.Outcome(); over {
		s.finish(end)
		return
	}
	s.listener.TurnChanged(s.turn())
	s.dispatch()
}

// finish ends the game and stops every worker.
func (s *Scheduler) finish(end rules.Ending) {
	s.ending = &end
	s.cancelAll()
	s.log.Info().Str("game", s.gameID).Str("outcome", string(end.Outcome)).Str("reason", end.Reason).Msg("game over")
	s.listener.GameOver(end)
	s.listener.TurnChanged(s.turn())
}

// tick runs one clock period for the side to move.
func (s *Scheduler) tick() {
	if s.ending != nil || s.paused || !s.clocks.Timed() {
		return
	}
	side := s.board.Turn()
	expired := s.clocks.Tick(side)
	s.listener.ClockChanged(s.clocks.State())
	if expired {
		s.log.Info().Err(&TimeExpiredError{Side: side}).Msg("flag fell")
		s.finish(rules.TimeForfeit(side))
	}
}

func (s *Scheduler) publishBoard() {
	u := BoardUpdate{GameID: s.gameID, FEN: s.board.FEN(), Moves: s.board.SANMoves()}
	if m := s.board.LastMove(); m != nil {
		u.LastMove = m.String()
		if n := len(u.Moves); n > 0 {
			u.LastSAN = u.Moves[n-1]
		}
	}
	s.listener.BoardChanged(u)
}

func (s *Scheduler) publishAll() {
	s.publishBoard()
	s.listener.ClockChanged(s.clocks.State())
	s.listener.TurnChanged(s.turn())
}
