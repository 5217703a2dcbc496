// Package config loads the scheduler settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jacokyle01/chess-scheduler/engine"
	"github.com/jacokyle01/chess-scheduler/models"
	"gopkg.in/yaml.v3"
)

// Config is every setting the scheduler and server read.
type Config struct {
	Engines    []engine.Config `yaml:"engines" json:"engines"`
	GameMode   string          `yaml:"game_mode" json:"game_mode"`
	HumanColor string          `yaml:"human_color" json:"human_color"`

	TimeControlSeconds float64       `yaml:"time_control_seconds" json:"time_control_seconds"`
	IncrementSeconds   float64       `yaml:"increment_seconds" json:"increment_seconds"`
	LowTimeSeconds     float64       `yaml:"low_time_seconds" json:"low_time_seconds"`
	ClockTick          time.Duration `yaml:"clock_tick" json:"clock_tick"`
	ClockUnitSeconds   float64       `yaml:"clock_unit_seconds" json:"clock_unit_seconds"`

	BookPath     string `yaml:"book_path" json:"book_path"`
	BookMaxDepth int    `yaml:"book_max_depth" json:"book_max_depth"`

	Strength             string        `yaml:"strength" json:"strength"`
	StopGrace            time.Duration `yaml:"stop_grace" json:"stop_grace"`
	AnalysisMaxDepth     int           `yaml:"analysis_max_depth" json:"analysis_max_depth"`
	DrawAcceptCentipawns int           `yaml:"draw_accept_centipawns" json:"draw_accept_centipawns"`

	Listen   string `yaml:"listen" json:"listen"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

func Default() Config {
	return Config{
		GameMode:   "human_vs_engine",
		HumanColor: "white",

		TimeControlSeconds: 300,
		IncrementSeconds:   0,
		LowTimeSeconds:     30,
		ClockTick:          time.Second,
		ClockUnitSeconds:   1,

		BookMaxDepth: 10,

		Strength:             "time_based",
		StopGrace:            2 * time.Second,
		AnalysisMaxDepth:     99,
		DrawAcceptCentipawns: -150,

		Listen:   ":8080",
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes YAML from r over the defaults and validates the result.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.Engines) > 2 {
		return fmt.Errorf("at most 2 engines can be configured, got %d", len(c.Engines))
	}
	if _, err := models.ParseGameMode(c.GameMode); err != nil {
		return err
	}
	if _, err := models.ParseColor(c.HumanColor); err != nil {
		return fmt.Errorf("human_color: %w", err)
	}
	if _, err := ParseStrength(c.Strength); err != nil {
		return err
	}
	switch {
	case c.TimeControlSeconds < 0:
		return errors.New("time_control_seconds must not be negative")
	case c.IncrementSeconds < 0:
		return errors.New("increment_seconds must not be negative")
	case c.ClockTick <= 0:
		return errors.New("clock_tick must be positive")
	case c.ClockUnitSeconds <= 0:
		return errors.New("clock_unit_seconds must be positive")
	case c.BookMaxDepth < 0:
		return errors.New("book_max_depth must not be negative")
	case c.StopGrace <= 0:
		return errors.New("stop_grace must be positive")
	case c.AnalysisMaxDepth <= 0:
		return errors.New("analysis_max_depth must be positive")
	}
	for i, e := range c.Engines {
		if e.Threads < 0 || e.HashMB < 0 {
			return fmt.Errorf("engine %d: threads and hash_mb must not be negative", i+1)
		}
	}
	return nil
}

// Mode is the parsed game mode.
func (c Config) Mode() models.GameMode {
	m, _ := models.ParseGameMode(c.GameMode)
	return m
}

// Engine returns the configuration of engine slot i, or nil.
func (c Config) Engine(i int) *engine.Config {
	if i < 0 || i >= len(c.Engines) || c.Engines[i].Path == "" {
		return nil
	}
	e := c.Engines[i]
	return &e
}

// StrengthKind is how a search is bounded.
type StrengthKind int

const (
	TimeBased StrengthKind = iota
	FixedDepth
	FixedNodes
)

// Strength is a parsed engine-strength policy.
type Strength struct {
	Kind  StrengthKind
	Value int
}

func (s Strength) String() string {
	switch s.Kind {
	case FixedDepth:
		return "depth_" + strconv.Itoa(s.Value)
	case FixedNodes:
		return "nodes_" + strconv.Itoa(s.Value)
	}
	return "time_based"
}

// ParseStrength reads "time_based", "depth_<N>" or "nodes_<N>".
func ParseStrength(s string) (Strength, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "time_based" {
		return Strength{Kind: TimeBased}, nil
	}
	kind, n, ok := strings.Cut(s, "_")
	if !ok {
		return Strength{}, fmt.Errorf("unknown strength %q", s)
	}
	v, err := strconv.Atoi(n)
	if err != nil || v <= 0 {
		return Strength{}, fmt.Errorf("strength %q: budget must be a positive integer", s)
	}
	switch kind {
	case "depth":
		return Strength{Kind: FixedDepth, Value: v}, nil
	case "nodes":
		return Strength{Kind: FixedNodes, Value: v}, nil
	}
	return Strength{}, fmt.Errorf("unknown strength %q", s)
}

// Store holds the live configuration.
type Store struct {
	mu     sync.RWMutex
	config Config
}

func NewStore(cfg Config) *Store {
	return &Store{config: cfg}
}

func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Update validates cfg and makes it current.
func (s *Store) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	return nil
}
