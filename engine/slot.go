package engine

import (
	"errors"
	"sync"

	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/rs/zerolog"
)

var errSlotReconfigured = errors.New("engine slot reconfigured while starting")

// Slot is the engine seat for one side. Each worker role gets its own
// process, started on first use and restarted after a teardown.
type Slot struct {
	index   int
	factory Factory
	log     zerolog.Logger

	mu       sync.Mutex
	cfg      *Config
	gen      uint64
	bindings [models.RoleCount]Process
}

// NewSlot creates a slot. A nil cfg leaves the slot unconfigured.
func NewSlot(index int, cfg *Config, factory Factory, log zerolog.Logger) *Slot {
	s := &Slot{
		index:   index,
		factory: factory,
		log:     log.With().Int("slot", index).Logger(),
	}
	s.setConfig(cfg)
	return s
}

func (s *Slot) setConfig(cfg *Config) {
	if cfg == nil || cfg.Path == "" {
		s.cfg = nil
		return
	}
	c := *cfg
	s.cfg = &c
}

func (s *Slot) Index() int {
	return s.index
}

func (s *Slot) Configured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg != nil
}

func (s *Slot) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return ""
	}
	return s.cfg.Label()
}

// Acquire returns the process bound to role, starting one when needed.
// The engine is started without holding the slot lock.
func (s *Slot) Acquire(role models.Role) (Process, error) {
	s.mu.Lock()
	if s.cfg == nil {
		s.mu.Unlock()
		return nil, ErrNoEngine
	}
	if p := s.bindings[role]; p != nil {
		if p.Alive() {
			s.mu.Unlock()
			return p, nil
		}
		s.bindings[role] = nil
	}
	cfg := *s.cfg
	gen := s.gen
	s.mu.Unlock()

	p, err := s.factory(cfg, s.log.With().Str("role", role.String()).Logger())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		p.Close()
		return nil, errSlotReconfigured
	}
	if existing := s.bindings[role]; existing != nil && existing.Alive() {
		p.Close()
		return existing, nil
	}
	s.bindings[role] = p
	s.log.Info().Str("role", role.String()).Str("engine", cfg.Label()).Msg("engine bound")
	return p, nil
}

// Teardown closes the process bound to role. The next Acquire starts a new one.
func (s *Slot) Teardown(role models.Role) {
	s.mu.Lock()
	p := s.bindings[role]
	s.bindings[role] = nil
	s.mu.Unlock()
	if p != nil {
		s.log.Warn().Str("role", role.String()).Msg("engine binding torn down")
		p.Close()
	}
}

// Reconfigure swaps the engine configuration and drops every binding.
func (s *Slot) Reconfigure(cfg *Config) {
	s.mu.Lock()
	s.setConfig(cfg)
	s.gen++
	old := s.bindings
	s.bindings = [models.RoleCount]Process{}
	s.mu.Unlock()
	for _, p := range old {
		if p != nil {
			p.Close()
		}
	}
}

func (s *Slot) Close() {
	s.Reconfigure(nil)
}
