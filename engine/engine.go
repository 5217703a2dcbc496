// Package engine wraps external UCI chess engines. A Slot owns the engine
// processes configured for one side and hands out one process per worker role.
package engine

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"github.com/rs/zerolog"
)

var (
	ErrNoEngine = errors.New("no engine configured")
	ErrClosed   = errors.New("engine process closed")
	ErrNoMove   = errors.New("engine returned no move")
	ErrExited   = errors.New("engine process exited")
)

// Config describes how to start one engine.
type Config struct {
	Name    string            `yaml:"name" json:"name"`
	Path    string            `yaml:"path" json:"path"`
	Args    []string          `yaml:"args" json:"args,omitempty"`
	Threads int               `yaml:"threads" json:"threads"`
	HashMB  int               `yaml:"hash_mb" json:"hash_mb"`
	Options map[string]string `yaml:"options" json:"options,omitempty"`
}

func (c Config) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Path
}

// SetOptions lists the UCI options the engine is started with, in a stable order.
func (c Config) SetOptions() []uci.CmdSetOption {
	var cmds []uci.CmdSetOption
	if c.Threads > 0 {
		cmds = append(cmds, uci.CmdSetOption{Name: "Threads", Value: strconv.Itoa(c.Threads)})
	}
	if c.HashMB > 0 {
		cmds = append(cmds, uci.CmdSetOption{Name: "Hash", Value: strconv.Itoa(c.HashMB)})
	}
	names := make([]string, 0, len(c.Options))
	for name := range c.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmds = append(cmds, uci.CmdSetOption{Name: name, Value: c.Options[name]})
	}
	return cmds
}

// Process is one running engine session. Calls are not concurrent-safe
// with each other; a Slot gives every worker role its own Process.
type Process interface {
	// Analyze searches pos up to maxDepth, reporting every new principal
	// variation through emit. It returns ctx.Err() once ctx is done.
	Analyze(ctx context.Context, pos *chess.Position, maxDepth int, emit func(models.AnalysisResult)) error
	// BestMove runs one bounded search and returns the chosen move. Lines
	// reported while searching go to emit, which may be nil.
	BestMove(ctx context.Context, pos *chess.Position, limit models.SearchLimit, emit func(models.AnalysisResult)) (*chess.Move, models.AnalysisResult, error)
	Alive() bool
	Close() error
}

// Factory starts a Process for cfg.
type Factory func(cfg Config, log zerolog.Logger) (Process, error)

// UCIFactory starts engines with NewUCIProcess. drain bounds how long a
// stopped search may take to answer before the process is discarded.
func UCIFactory(drain time.Duration) Factory {
	return func(cfg Config, log zerolog.Logger) (Process, error) {
		return NewUCIProcess(cfg, drain, log)
	}
}
