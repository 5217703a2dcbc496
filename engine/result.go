package engine

import (
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
)

// toResult converts engine output to a result scored from White's side.
func toResult(pos *chess.Position, res uci.SearchResults) models.AnalysisResult {
	info := res.Info
	score := models.Score{Centipawns: info.Score.CP, Mate: info.Score.Mate}
	if pos.Turn() == chess.Black {
		score = score.Flip()
	}
	pv := make([]string, 0, len(info.PV))
	for _, m := range info.PV {
		pv = append(pv, m.String())
	}
	out := models.AnalysisResult{
		FEN:       pos.String(),
		Score:     score,
		Depth:     info.Depth,
		Nodes:     int64(info.Nodes),
		NodesPerS: int64(info.NPS),
		PV:        pv,
		Time:      int(info.Time.Milliseconds()),
	}
	switch {
	case res.BestMove != nil:
		out.BestMove = res.BestMove.String()
		if len(pv) == 0 {
			out.PV = []string{out.BestMove}
		}
	case len(pv) > 0:
		out.BestMove = pv[0]
	}
	return out
}
