package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"github.com/rs/zerolog"
)

const (
	handshakeTimeout = 10 * time.Second
	killDelay        = 2 * time.Second
	lineBuffer       = 64
)

// UCIProcess wraps a UCI chess engine running as a child process.
type UCIProcess struct {
	cfg   Config
	cmd   *exec.Cmd
	drain time.Duration
	log   zerolog.Logger

	writeMu sync.Mutex
	stdin   io.WriteCloser
	w       *bufio.Writer

	lines  chan string
	quit   chan struct{}
	exited chan struct{}
	busy   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewUCIProcess starts the engine binary and completes the UCI handshake.
func NewUCIProcess(cfg Config, drain time.Duration, log zerolog.Logger) (*UCIProcess, error) {
	if cfg.Path == "" {
		return nil, ErrNoEngine
	}
	cmd := exec.Command(cfg.Path, cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Label(), err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Label(), err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Label(), err)
	}

	p := &UCIProcess{
		cfg:    cfg,
		cmd:    cmd,
		drain:  drain,
		log:    log.With().Str("engine", cfg.Label()).Logger(),
		stdin:  stdin,
		w:      bufio.NewWriter(stdin),
		lines:  make(chan string, lineBuffer),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
		busy:   make(chan struct{}, 1),
	}
	go p.readLoop(stdout)

	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()
	if err := p.handshake(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("initialize engine %s: %w", cfg.Label(), err)
	}
	p.log.Debug().Int("pid", cmd.Process.Pid).Msg("engine started")
	return p, nil
}

func (p *UCIProcess) handshake(ctx context.Context) error {
	if err := p.send(uci.CmdUCI); err != nil {
		return err
	}
	if err := p.expect(ctx, "uciok"); err != nil {
		return err
	}
	for _, opt := range p.cfg.SetOptions() {
		if err := p.send(opt); err != nil {
			return err
		}
	}
	if err := p.send(uci.CmdIsReady); err != nil {
		return err
	}
	if err := p.expect(ctx, "readyok"); err != nil {
		return err
	}
	if err := p.send(uci.CmdUCINewGame, uci.CmdIsReady); err != nil {
		return err
	}
	return p.expect(ctx, "readyok")
}

// readLoop forwards engine output line by line. lines is closed when the
// process closes its stdout, which is how a crash is noticed.
func (p *UCIProcess) readLoop(stdout io.Reader) {
	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		p.log.Trace().Str("line", line).Msg("engine output")
		select {
		case p.lines <- line:
		case <-p.quit:
		}
	}
	close(p.lines)
	err := p.cmd.Wait()
	p.log.Debug().Err(err).Msg("engine exited")
	close(p.exited)
}

func (p *UCIProcess) send(cmds ...uci.Cmd) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	for _, cmd := range cmds {
		p.log.Trace().Str("cmd", cmd.String()).Msg("engine input")
		if _, err := p.w.WriteString(cmd.String() + "\n"); err != nil {
			return err
		}
	}
	return p.w.Flush()
}

// expect reads output until a line equal to token.
func (p *UCIProcess) expect(ctx context.Context, token string) error {
	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				return ErrExited
			}
			if line == token {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// search runs one go command on pos. When ctx ends first the engine is sent
// stop and given p.drain to answer; after that the process is closed.
func (p *UCIProcess) search(ctx context.Context, pos *chess.Position, goCmd uci.CmdGo, emit func(uci.Info)) (uci.SearchResults, error) {
	select {
	case p.busy <- struct{}{}:
	case <-ctx.Done():
		return uci.SearchResults{}, ctx.Err()
	}
	defer func() { <-p.busy }()
	if !p.Alive() {
		return uci.SearchResults{}, ErrClosed
	}
	if err := p.send(uci.CmdPosition{Position: pos}, goCmd); err != nil {
		p.Close()
		return uci.SearchResults{}, fmt.Errorf("engine %s: %w", p.cfg.Label(), err)
	}

	var (
		res     uci.SearchResults
		done    = ctx.Done()
		drain   <-chan time.Time
		stopped bool
	)
	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				p.Close()
				return res, fmt.Errorf("engine %s: %w during search", p.cfg.Label(), ErrExited)
			}
			switch {
			case strings.HasPrefix(line, "bestmove"):
				if stopped {
					return res, ctx.Err()
				}
				m, err := parseBestMove(line)
				if err != nil {
					return res, fmt.Errorf("engine %s: %w", p.cfg.Label(), err)
				}
				res.BestMove = m
				return res, nil
			case strings.HasPrefix(line, "info"):
				var info uci.Info
				if err := info.UnmarshalText([]byte(line)); err != nil || len(info.PV) == 0 {
					continue
				}
				if info.Score.LowerBound || info.Score.UpperBound {
					continue
				}
				res.Info = info
				if !stopped && emit != nil {
					emit(info)
				}
			}
		case <-done:
			done = nil
			stopped = true
			if err := p.send(uci.CmdStop); err != nil {
				p.Close()
				return res, ctx.Err()
			}
			t := time.NewTimer(p.drain)
			defer t.Stop()
			drain = t.C
		case <-drain:
			p.log.Warn().Dur("drain", p.drain).Msg("engine did not answer stop, closing")
			p.Close()
			return res, ctx.Err()
		case <-p.quit:
			return res, ErrClosed
		}
	}
}

// parseBestMove reads "bestmove <move> [ponder <move>]".
func parseBestMove(line string) (*chess.Move, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[1] == "(none)" || fields[1] == "0000" {
		return nil, ErrNoMove
	}
	m, err := chess.UCINotation{}.Decode(nil, fields[1])
	if err != nil {
		return nil, fmt.Errorf("bad best move %q: %w", fields[1], err)
	}
	return m, nil
}

func (p *UCIProcess) Analyze(ctx context.Context, pos *chess.Position, maxDepth int, emit func(models.AnalysisResult)) error {
	goCmd := uci.CmdGo{Depth: maxDepth}
	if maxDepth <= 0 {
		goCmd = uci.CmdGo{Infinite: true}
	}
	last := 0
	_, err := p.search(ctx, pos, goCmd, func(info uci.Info) {
		if info.Depth < last {
			return
		}
		last = info.Depth
		emit(toResult(pos, uci.SearchResults{Info: info}))
	})
	return err
}

func (p *UCIProcess) BestMove(ctx context.Context, pos *chess.Position, limit models.SearchLimit, emit func(models.AnalysisResult)) (*chess.Move, models.AnalysisResult, error) {
	goCmd := uci.CmdGo{Depth: limit.Depth, Nodes: limit.Nodes, MoveTime: limit.MoveTime}
	if limit.Infinite() {
		goCmd.Depth = 1
	}
	var report func(uci.Info)
	if emit != nil {
		report = func(info uci.Info) {
			emit(toResult(pos, uci.SearchResults{Info: info}))
		}
	}
	res, err := p.search(ctx, pos, goCmd, report)
	if err != nil {
		return nil, models.AnalysisResult{}, err
	}
	return res.BestMove, toResult(pos, res), nil
}

func (p *UCIProcess) Alive() bool {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return false
	}
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// Close asks the engine to quit and kills it if it has not exited after
// killDelay. It does not wait for the process to exit.
func (p *UCIProcess) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.quit)
	_ = p.send(uci.CmdQuit)
	p.writeMu.Lock()
	_ = p.stdin.Close()
	p.writeMu.Unlock()

	go func() {
		t := time.NewTimer(killDelay)
		defer t.Stop()
		select {
		case <-p.exited:
		case <-t.C:
			if err := p.cmd.Process.Kill(); err != nil {
				p.log.Debug().Err(err).Msg("engine kill")
			}
		}
	}()
	return nil
}

var _ Process = (*UCIProcess)(nil)
