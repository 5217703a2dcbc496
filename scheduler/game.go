package scheduler

import (
	"github.com/jacokyle01/chess-scheduler/config"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/jacokyle01/chess-scheduler/rules"
	"github.com/notnil/chess"
)

func (s *Scheduler) applyHumanMove(uci string) error {
	if s.ending != nil {
		return ErrGameOver
	}
	if s.paused {
		return ErrPaused
	}
	if s.automated(s.board.Turn()) {
		return ErrNotYourTurn
	}
	m, ok := s.board.Find(uci)
	if !ok {
		return &IllegalMoveError{Move: uci, FEN: s.board.FEN()}
	}
	s.commit(m)
	return nil
}

func (s *Scheduler) undo() error {
	if s.ending != nil {
		return ErrGameOver
	}
	if s.board.MoveCount() == 0 {
		return nil
	}
	s.cancelAll()
	if err := s.board.Undo(); err != nil {
		return err
	}
	s.chart.Truncate(s.board.MoveCount())
	s.lastEval = nil
	s.log.Info().Str("game", s.gameID).Str("fen", s.board.FEN()).Msg("move taken back")

	s.publishBoard()
	s.listener.TurnChanged(s.turn())
	s.dispatch()
	return nil
}

func (s *Scheduler) pause() error {
	if s.ending != nil {
		return ErrGameOver
	}
	if s.paused {
		return nil
	}
	s.paused = true
	s.cancel(models.RoleSearch)
	s.log.Info().Str("game", s.gameID).Msg("paused")
	s.listener.TurnChanged(s.turn())
	return nil
}

func (s *Scheduler) resume() error {
	if !s.paused {
		return ErrNotPaused
	}
	s.paused = false
	s.log.Info().Str("game", s.gameID).Msg("resumed")
	s.listener.TurnChanged(s.turn())
	s.dispatch()
	return nil
}

func (s *Scheduler) setPosition(fen string) error {
	b, err := rules.New(fen)
	if err != nil {
		return err
	}
	s.cancelAll()
	s.board = b
	s.mode = models.HumanVsEngine
	s.human = b.Turn()
	s.resetGame()
	s.log.Info().Str("game", s.gameID).Str("fen", b.FEN()).Msg("position set")
	s.restartGame()
	return nil
}

func (s *Scheduler) newGame(mode models.GameMode, human chess.Color) error {
	if human != chess.White && human != chess.Black {
		human = chess.White
	}
	b, err := rules.New(rules.StartFEN)
	if err != nil {
		return err
	}
	s.cancelAll()
	s.board = b
	s.mode = mode
	s.human = human
	s.resetGame()
	s.log.Info().Str("game", s.gameID).Str("mode", mode.String()).Str("human", models.ColorName(human)).Msg("new game")
	s.restartGame()
	return nil
}

// restartGame publishes a fresh board and starts play on it.
func (s *Scheduler) restartGame() {
	s.publishAll()
	if end, over := s.board.Outcome(); over {
		s.finish(end)
		return
	}
	s.dispatch()
}

// reconfigure swaps settings mid-game. The running clocks are kept; a new
// time control starts with the next game.
func (s *Scheduler) reconfigure(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cancelAll()
	s.cfg = cfg
	s.strength, _ = config.ParseStrength(cfg.Strength)
	for i, slot := range s.slots {
		slot.Reconfigure(cfg.Engine(i))
	}
	s.failures = [2][models.RoleCount]int{}
	s.suspend = [2]bool{}
	s.loadBook()
	if s.bookErr != nil {
		s.listener.EngineError(s.bookErr)
	}
	if s.ticker != nil {
		s.ticker.Reset(cfg.ClockTick)
	}
	s.log.Info().Str("strength", s.strength.String()).Msg("reconfigured")
	s.listener.TurnChanged(s.turn())
	s.dispatch()
	return nil
}

func (s *Scheduler) hint() any {
	if s.lastEval == nil || s.lastEval.BestMove == "" {
		return nil
	}
	m, ok := s.board.Find(s.lastEval.BestMove)
	if !ok {
		return nil
	}
	return Hint{
		Move:  m.String(),
		SAN:   s.board.SAN(m),
		Score: s.lastEval.Score,
		Depth: s.lastEval.Depth,
	}
}

func (s *Scheduler) bookMoves() (any, error) {
	entries, err := s.book.Candidates(s.board.Position())
	if err != nil {
		s.bookCorrupt(err)
		return nil, err
	}
	out := make([]BookMove, 0, len(entries))
	for _, e := range entries {
		m, ok := s.board.Find(e.Move)
		if !ok {
			continue
		}
		out = append(out, BookMove{Move: e.Move, SAN: s.board.SAN(m), Weight: e.Weight})
	}
	return out, nil
}

func (s *Scheduler) adjustClock(side chess.Color, seconds float64, add bool) error {
	if s.ending != nil {
		return ErrGameOver
	}
	if add {
		s.clocks.Add(side, seconds)
	} else {
		s.clocks.Set(side, seconds)
	}
	s.log.Info().Str("side", models.ColorName(side)).Float64("remaining", s.clocks.Remaining(side)).Msg("clock adjusted")
	s.listener.ClockChanged(s.clocks.State())
	return nil
}

// offerDraw ends the game when a draw can be claimed, or when the engine
// opponent judges its own position bad enough to take the offer.
func (s *Scheduler) offerDraw() (any, error) {
	if s.ending != nil {
		return nil, ErrGameOver
	}
	if s.mode == models.EngineVsEngine {
		return nil, ErrDrawNotAvailable
	}
	if method, ok := s.board.ClaimableDraw(); ok {
		end, err := s.board.Draw(method)
		if err != nil {
			return nil, err
		}
		s.finish(end)
		return DrawResult{Accepted: true, Reason: end.Reason}, nil
	}

	if s.lastEval == nil {
		return DrawResult{Reason: "engine has no evaluation yet"}, nil
	}
	own := s.lastEval.Score.ChartValue()
	if s.human == chess.White {
		own = -own
	}
	if own > s.cfg.DrawAcceptCentipawns {
		s.log.Info().Int("eval", own).Msg("draw declined")
		return DrawResult{Reason: "engine declines"}, nil
	}
	end, err := s.board.Draw(chess.DrawOffer)
	if err != nil {
		return nil, err
	}
	s.finish(end)
	return DrawResult{Accepted: true, Reason: end.Reason}, nil
}

func (s *Scheduler) resign(side chess.Color) error {
	if s.ending != nil {
		return ErrGameOver
	}
	if side != chess.White && side != chess.Black {
		side = s.human
	}
	s.finish(s.board.Resign(side))
	return nil
}
