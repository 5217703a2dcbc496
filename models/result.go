package models

// Score is an engine evaluation, always from White's point of view.
type Score struct {
	Centipawns int `json:"cp"`
	Mate       int `json:"mate,omitempty"` // moves to mate, positive when White mates
}

// MateChartValue is what a forced mate is drawn as on the evaluation chart.
const MateChartValue = 1000

func (s Score) IsMate() bool {
	return s.Mate != 0
}

// Flip returns the score seen from Black's side.
func (s Score) Flip() Score {
	return Score{Centipawns: -s.Centipawns, Mate: -s.Mate}
}

// ChartValue collapses mates to +/-MateChartValue.
func (s Score) ChartValue() int {
	switch {
	case s.Mate > 0:
		return MateChartValue
	case s.Mate < 0:
		return -MateChartValue
	}
	return s.Centipawns
}

// AnalysisResult represents one engine report for a position
type AnalysisResult struct {
	JobID     string   `json:"job_id"`
	FEN       string   `json:"fen"`
	BestMove  string   `json:"best_move,omitempty"`
	Score     Score    `json:"score"`
	Depth     int      `json:"depth"`
	Nodes     int64    `json:"nodes"`
	NodesPerS int64    `json:"nodes_per_s"`
	PV        []string `json:"pv"` // principal variation, UCI notation
	Time      int      `json:"time_ms"`
}

// Clone copies the result so the PV can be handed to another goroutine.
func (r AnalysisResult) Clone() AnalysisResult {
	r.PV = append([]string(nil), r.PV...)
	return r
}
