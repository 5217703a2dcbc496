package engine

import (
	"testing"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
)

func TestToResultNormalizesToWhite(t *testing.T) {
	fen, err := chess.FEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	pos := chess.NewGame(fen).Position()
	move, err := chess.UCINotation{}.Decode(pos, "e7e5")
	if err != nil {
		t.Fatal(err)
	}

	res := uci.SearchResults{
		BestMove: move,
		Info: uci.Info{
			Depth: 12,
			Nodes: 5000,
			NPS:   250000,
			Time:  20 * time.Millisecond,
			Score: uci.Score{CP: 35},
			PV:    []*chess.Move{move},
		},
	}
	r := toResult(pos, res)
	if r.Score.Centipawns != -35 {
		t.Fatalf("black-to-move score should flip: got %d", r.Score.Centipawns)
	}
	if r.BestMove != "e7e5" || len(r.PV) != 1 || r.PV[0] != "e7e5" {
		t.Fatalf("unexpected move data %+v", r)
	}
	if r.Depth != 12 || r.Nodes != 5000 || r.Time != 20 {
		t.Fatalf("unexpected stats %+v", r)
	}

	res.Info.Score = uci.Score{Mate: 3}
	if r := toResult(pos, res); r.Score.Mate != -3 || r.Score.ChartValue() != -1000 {
		t.Fatalf("mate score not normalized: %+v", r.Score)
	}
}

func TestToResultTakesBestMoveFromPV(t *testing.T) {
	pos := chess.NewGame().Position()
	move, err := chess.UCINotation{}.Decode(pos, "d2d4")
	if err != nil {
		t.Fatal(err)
	}
	r := toResult(pos, uci.SearchResults{Info: uci.Info{Depth: 4, PV: []*chess.Move{move}}})
	if r.BestMove != "d2d4" {
		t.Fatalf("info line without bestmove should use the PV head, got %q", r.BestMove)
	}
}
