package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/notnil/chess"
)

// Role names the kind of background work bound to an engine.
type Role int

const (
	RoleAnalysis Role = iota
	RoleSearch
)

// RoleCount is the number of worker roles.
const RoleCount = 2

func (r Role) String() string {
	switch r {
	case RoleAnalysis:
		return "analysis"
	case RoleSearch:
		return "search"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "analysis":
		return RoleAnalysis, nil
	case "search":
		return RoleSearch, nil
	}
	return 0, fmt.Errorf("unknown worker role %q", s)
}

// SearchLimit bounds a search. The zero value means run until stopped.
type SearchLimit struct {
	Depth    int           `json:"depth,omitempty"`
	Nodes    int           `json:"nodes,omitempty"`
	MoveTime time.Duration `json:"move_time,omitempty"`
}

func (l SearchLimit) Infinite() bool {
	return l.Depth == 0 && l.Nodes == 0 && l.MoveTime == 0
}

func (l SearchLimit) String() string {
	switch {
	case l.MoveTime > 0:
		return "movetime " + l.MoveTime.String()
	case l.Nodes > 0:
		return fmt.Sprintf("nodes %d", l.Nodes)
	case l.Depth > 0:
		return fmt.Sprintf("depth %d", l.Depth)
	}
	return "infinite"
}

// WorkerJob represents one unit of engine work for a single position.
// Epoch ties every result of the job back to the request that started it.
type WorkerJob struct {
	ID       string          `json:"id"`
	Role     Role            `json:"role"`
	Slot     int             `json:"slot"`
	Side     chess.Color     `json:"side"`
	Epoch    uint64          `json:"epoch"`
	FEN      string          `json:"fen"`
	Limit    SearchLimit     `json:"limit"`
	Position *chess.Position `json:"-"`
}
