package server

import (
	"sort"
	"sync"

	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/jacokyle01/chess-scheduler/rules"
	"github.com/jacokyle01/chess-scheduler/scheduler"
	"github.com/rs/zerolog"
)

// GameRecord is the stored evaluation history of one game.
type GameRecord struct {
	ID     string        `json:"id"`
	Plies  int           `json:"plies"`
	Chart  models.Chart  `json:"chart"`
	Ending *rules.Ending `json:"ending,omitempty"`
	seq    int
}

// Archive keeps the evaluation chart of every game seen this run.
type Archive struct {
	scheduler.NopListener

	mu      sync.RWMutex
	games   map[string]*GameRecord
	current string
	seq     int
	log     zerolog.Logger
}

func NewArchive(log zerolog.Logger) *Archive {
	return &Archive{games: make(map[string]*GameRecord), log: log}
}

// BoardChanged tracks the current game. Undo shortens the stored chart.
func (a *Archive) BoardChanged(u scheduler.BoardUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.games[u.GameID]
	if !ok {
		a.seq++
		g = &GameRecord{ID: u.GameID, Chart: models.Chart{GameID: u.GameID}, seq: a.seq}
		a.games[u.GameID] = g
	}
	a.current = u.GameID
	g.Plies = len(u.Moves)
	g.Chart.Truncate(g.Plies)
}

func (a *Archive) ChartAppended(p models.ChartPoint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.games[a.current]
	if !ok {
		return
	}
	g.Chart.Append(p)
}

func (a *Archive) GameOver(e rules.Ending) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.games[a.current]
	if !ok {
		return
	}
	g.Ending = &e
	a.log.Info().
		Str("game", g.ID).
		Int("plies", g.Plies).
		Str("outcome", string(e.Outcome)).
		Str("reason", e.Reason).
		Msg("game archived")
}

// Chart returns a copy of a stored game's chart.
func (a *Archive) Chart(id string) (models.Chart, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	g, ok := a.games[id]
	if !ok {
		return models.Chart{}, false
	}
	return g.Chart.Copy(), true
}

// Games lists the stored games, oldest first.
func (a *Archive) Games() []GameRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]GameRecord, 0, len(a.games))
	for _, g := range a.games {
		rec := *g
		rec.Chart = g.Chart.Copy()
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
