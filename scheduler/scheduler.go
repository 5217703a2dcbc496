// Package scheduler decides who produces the next move of a chess game and
// runs the engine workers that search and analyse on its behalf. All game
// state is owned by the goroutine running (*Scheduler).Run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jacokyle01/chess-scheduler/book"
	"github.com/jacokyle01/chess-scheduler/clock"
	"github.com/jacokyle01/chess-scheduler/config"
	"github.com/jacokyle01/chess-scheduler/engine"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/jacokyle01/chess-scheduler/rules"
	"github.com/jacokyle01/chess-scheduler/worker"
	"github.com/notnil/chess"
	"github.com/rs/zerolog"
)

const eventBuffer = 64

// Options are the collaborators of a Scheduler. Zero values get defaults.
type Options struct {
	// Factory starts engine processes. Defaults to UCI engines.
	Factory engine.Factory
	// Book overrides the book loaded from the configured book path.
	Book     book.Source
	Listener Listener
	Log      zerolog.Logger
}

// Scheduler is the turn scheduler of one game.
type Scheduler struct {
	log      zerolog.Logger
	listener Listener

	cmds     chan request
	events   chan worker.Event
	quit     chan struct{}
	launcher *worker.Launcher

	// Owned by the Run goroutine.
	ctx      context.Context
	ticker   *time.Ticker
	cfg      config.Config
	strength config.Strength
	mode     models.GameMode
	human    chess.Color
	gameID   string
	board    *rules.Board
	clocks   *clock.Pair
	book     *book.Selector
	slots    [2]*engine.Slot
	handles  [models.RoleCount]*worker.Handle
	epochs   [models.RoleCount]uint64
	paused   bool
	ending   *rules.Ending
	failures [2][models.RoleCount]int
	suspend  [2]bool
	lastEval *models.AnalysisResult
	chart    models.Chart
	stale    uint64
	bookSrc  book.Source
	bookErr  error
}

// New builds a scheduler for cfg. Nothing runs until Run is called.
func New(cfg config.Config, opts Options) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Factory == nil {
		opts.Factory = engine.UCIFactory(cfg.StopGrace / 2)
	}
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	human, _ := models.ParseColor(cfg.HumanColor)
	strength, _ := config.ParseStrength(cfg.Strength)

	s := &Scheduler{
		log:      opts.Log,
		listener: opts.Listener,
		cmds:     make(chan request),
		events:   make(chan worker.Event, eventBuffer),
		quit:     make(chan struct{}),
		ctx:      context.Background(),
		cfg:      cfg,
		strength: strength,
		mode:     cfg.Mode(),
		human:    human,
		clocks:   clock.New(cfg.TimeControlSeconds, cfg.IncrementSeconds, cfg.LowTimeSeconds, cfg.ClockUnitSeconds),
	}
	s.launcher = worker.NewLauncher(s.events, s.quit, cfg.AnalysisMaxDepth, opts.Log.With().Str("component", "worker").Logger())
	for i := range s.slots {
		s.slots[i] = engine.NewSlot(i, cfg.Engine(i), opts.Factory, opts.Log)
	}

	s.bookSrc = opts.Book
	s.book = book.NewSelector(nil, opts.Log.With().Str("component", "book").Logger())
	s.loadBook()

	board, err := rules.New(rules.StartFEN)
	if err != nil {
		return nil, err
	}
	s.board = board
	s.resetGame()
	return s, nil
}

// loadBook (re)installs the opening book, re-enabling a disabled one.
func (s *Scheduler) loadBook() {
	s.bookErr = nil
	if s.bookSrc != nil {
		s.book.Replace(s.bookSrc)
		return
	}
	if s.cfg.BookPath == "" {
		s.book.Replace(nil)
		return
	}
	b, err := book.Load(s.cfg.BookPath, s.cfg.BookMaxDepth*2)
	if err != nil {
		var corrupt *book.CorruptError
		if !errors.As(err, &corrupt) {
			err = &book.CorruptError{Source: s.cfg.BookPath, Err: err}
		}
		s.book.Replace(nil)
		s.bookErr = err
		s.log.Warn().Err(err).Str("path", s.cfg.BookPath).Msg("opening book not loaded")
		return
	}
	s.book.Replace(b)
	s.log.Info().Str("path", s.cfg.BookPath).Int("positions", b.Len()).Msg("opening book loaded")
}

// resetGame starts a new game record for the current board.
func (s *Scheduler) resetGame() {
	s.gameID = uuid.NewString()
	s.chart.Reset(s.gameID)
	s.clocks.Reset(s.cfg.TimeControlSeconds, s.cfg.IncrementSeconds)
	s.ending = nil
	s.paused = false
	s.lastEval = nil
}

// Run drives the game until ctx is done. It must be called exactly once.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.ticker = time.NewTicker(s.cfg.ClockTick)
	defer s.ticker.Stop()
	defer s.shutdown()

	s.log.Info().
		Str("game", s.gameID).
		Str("mode", s.mode.String()).
		Str("human", models.ColorName(s.human)).
		Msg("scheduler started")
	if s.bookErr != nil {
		s.listener.EngineError(s.bookErr)
	}
	s.publishAll()
	if end, over := s.board.Outcome(); over {
		s.finish(end)
	} else {
		s.dispatch()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.cmds:
			v, err := s.handle(req.cmd)
			req.reply <- response{value: v, err: err}
		case ev := <-s.events:
			s.onEvent(ev)
		case <-s.ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) shutdown() {
	close(s.quit)
	s.cancelAll()
	for _, slot := range s.slots {
		slot.Close()
	}
	s.log.Info().Str("game", s.gameID).Msg("scheduler stopped")
}

func (s *Scheduler) handle(cmd command) (any, error) {
	s.log.Debug().Str("command", cmd.name()).Msg("command")
	switch c := cmd.(type) {
	case moveCmd:
		return nil, s.applyHumanMove(c.uci)
	case undoCmd:
		return nil, s.undo()
	case pauseCmd:
		return nil, s.pause()
	case resumeCmd:
		return nil, s.resume()
	case setPositionCmd:
		return nil, s.setPosition(c.fen)
	case newGameCmd:
		return nil, s.newGame(c.mode, c.human)
	case reconfigureCmd:
		return nil, s.reconfigure(c.cfg)
	case cancelCmd:
		s.cancel(c.role)
		return nil, nil
	case hintCmd:
		return s.hint(), nil
	case bookCmd:
		return s.bookMoves()
	case clockCmd:
		return nil, s.adjustClock(c.side, c.seconds, c.add)
	case drawCmd:
		return s.offerDraw()
	case resignCmd:
		return nil, s.resign(c.side)
	case snapshotCmd:
		return s.snapshot(), nil
	}
	return nil, fmt.Errorf("unhandled command %T", cmd)
}

// automated reports whether side is played by an engine.
func (s *Scheduler) automated(side chess.Color) bool {
	return s.mode == models.EngineVsEngine || side != s.human
}

// slotFor is the engine slot serving side. Slot 0 serves both sides unless
// two engines play each other.
func (s *Scheduler) slotFor(side chess.Color) int {
	if s.mode == models.EngineVsEngine && side == chess.Black {
		return 1
	}
	return 0
}

func (s *Scheduler) turn() Turn {
	side := s.board.Turn()
	t := Turn{Side: side, Slot: s.slotFor(side)}
	switch {
	case s.ending != nil:
		t.State = GameOver
	case s.paused:
		t.State = Paused
	case s.mode == models.EngineVsEngine:
		t.State = BothEnginesAutoplay
	case s.automated(side):
		t.State = AwaitingEngine
	default:
		t.State = AwaitingHuman
	}
	return t
}
