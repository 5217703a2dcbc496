package models

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// GameMode decides which sides are played by an engine.
type GameMode int

const (
	HumanVsEngine GameMode = iota
	EngineVsEngine
)

func (m GameMode) String() string {
	if m == EngineVsEngine {
		return "engine_vs_engine"
	}
	return "human_vs_engine"
}

func ParseGameMode(s string) (GameMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "human_vs_engine", "hve":
		return HumanVsEngine, nil
	case "engine_vs_engine", "eve":
		return EngineVsEngine, nil
	}
	return HumanVsEngine, fmt.Errorf("unknown game mode %q", s)
}

func (m GameMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *GameMode) UnmarshalText(b []byte) error {
	v, err := ParseGameMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseColor reads "white"/"black" (or "w"/"b").
func ParseColor(s string) (chess.Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return chess.White, nil
	case "black", "b":
		return chess.Black, nil
	}
	return chess.NoColor, fmt.Errorf("unknown color %q", s)
}

// ColorName is the lower-case name of c.
func ColorName(c chess.Color) string {
	switch c {
	case chess.White:
		return "white"
	case chess.Black:
		return "black"
	}
	return "none"
}
