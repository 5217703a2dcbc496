package scheduler

import (
	"github.com/jacokyle01/chess-scheduler/clock"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/jacokyle01/chess-scheduler/rules"
)

// WorkerStatus is the live state of one worker role.
type WorkerStatus struct {
	Epoch uint64 `json:"epoch"`
	Live  bool   `json:"live"`
	Slot  int    `json:"slot"`
}

// SlotStatus describes one engine slot.
type SlotStatus struct {
	Engine     string `json:"engine,omitempty"`
	Configured bool   `json:"configured"`
	Suspended  bool   `json:"suspended"`
}

// Snapshot is a copy of the scheduler's state.
type Snapshot struct {
	GameID       string                  `json:"game_id"`
	FEN          string                  `json:"fen"`
	StartFEN     string                  `json:"start_fen"`
	Moves        []string                `json:"moves"`
	SAN          []string                `json:"san"`
	Turn         Turn                    `json:"turn"`
	SideToMove   string                  `json:"side_to_move"`
	Mode         models.GameMode         `json:"mode"`
	HumanColor   string                  `json:"human_color"`
	Clocks       clock.State             `json:"clocks"`
	Workers      map[string]WorkerStatus `json:"workers"`
	Slots        []SlotStatus            `json:"slots"`
	Analysis     *models.AnalysisResult  `json:"analysis,omitempty"`
	Chart        models.Chart            `json:"chart"`
	Ending       *rules.Ending           `json:"ending,omitempty"`
	BookEnabled  bool                    `json:"book_enabled"`
	StaleDropped uint64                  `json:"stale_dropped"`
}

func (s *Scheduler) snapshot() Snapshot {
	snap := Snapshot{
		GameID:       s.gameID,
		FEN:          s.board.FEN(),
		StartFEN:     s.board.StartFEN(),
		Moves:        s.board.UCIMoves(),
		SAN:          s.board.SANMoves(),
		Turn:         s.turn(),
		SideToMove:   models.ColorName(s.board.Turn()),
		Mode:         s.mode,
		HumanColor:   models.ColorName(s.human),
		Clocks:       s.clocks.State(),
		Workers:      make(map[string]WorkerStatus, models.RoleCount),
		Chart:        s.chart.Copy(),
		BookEnabled:  s.book.Enabled(),
		StaleDropped: s.stale,
	}
	for role := models.Role(0); role < models.RoleCount; role++ {
		st := WorkerStatus{Epoch: s.epochs[role]}
		if h := s.handles[role]; h != nil {
			st.Live = true
			st.Slot = h.Job().Slot
		}
		snap.Workers[role.String()] = st
	}
	for i, slot := range s.slots {
		snap.Slots = append(snap.Slots, SlotStatus{
			Engine:     slot.Label(),
			Configured: slot.Configured(),
			Suspended:  s.suspend[i],
		})
	}
	if s.lastEval != nil {
		r := s.lastEval.Clone()
		snap.Analysis = &r
	}
	if s.ending != nil {
		e := *s.ending
		snap.Ending = &e
	}
	return snap
}
