package rules

import "github.com/notnil/chess"

// Ending describes how a game finished.
type Ending struct {
	Outcome chess.Outcome `json:"outcome"`
	Method  chess.Method  `json:"-"`
	Reason  string        `json:"reason"`
}

// ReasonTimeExpired is the ending reason when a clock runs out.
const ReasonTimeExpired = "time expired"

// Outcome reports whether the position is terminal: checkmate, stalemate,
// insufficient material, the 75-move rule or fivefold repetition.
func (b *Board) Outcome() (Ending, bool) {
	if out := b.game.Outcome(); out != chess.NoOutcome {
		m := b.game.Method()
		return Ending{Outcome: out, Method: m, Reason: MethodReason(m)}, true
	}
	switch b.game.Position().Status() {
	case chess.Checkmate:
		out := chess.WhiteWon
		if b.Turn() == chess.White {
			out = chess.BlackWon
		}
		return Ending{Outcome: out, Method: chess.Checkmate, Reason: MethodReason(chess.Checkmate)}, true
	case chess.Stalemate:
		return Ending{Outcome: chess.Draw, Method: chess.Stalemate, Reason: MethodReason(chess.Stalemate)}, true
	}
	return Ending{}, false
}

// ClaimableDraw returns a rule-based draw the side to move may claim.
func (b *Board) ClaimableDraw() (chess.Method, bool) {
	for _, m := range b.game.EligibleDraws() {
		if m == chess.ThreefoldRepetition || m == chess.FiftyMoveRule {
			return m, true
		}
	}
	return chess.NoMethod, false
}

// Draw ends the game as drawn by method.
func (b *Board) Draw(method chess.Method) (Ending, error) {
	if err := b.game.Draw(method); err != nil {
		return Ending{}, err
	}
	return Ending{Outcome: chess.Draw, Method: method, Reason: MethodReason(method)}, nil
}

// TimeForfeit is the ending when loser's clock reaches zero.
func TimeForfeit(loser chess.Color) Ending {
	out := chess.WhiteWon
	if loser == chess.White {
		out = chess.BlackWon
	}
	return Ending{Outcome: out, Method: chess.NoMethod, Reason: ReasonTimeExpired}
}

func MethodReason(m chess.Method) string {
	switch m {
	case chess.Checkmate:
		return "checkmate"
	case chess.Stalemate:
		return "stalemate"
	case chess.InsufficientMaterial:
		return "insufficient material"
	case chess.SeventyFiveMoveRule:
		return "75-move rule"
	case chess.FivefoldRepetition:
		return "fivefold repetition"
	case chess.ThreefoldRepetition:
		return "threefold repetition"
	case chess.FiftyMoveRule:
		return "50-move rule"
	case chess.DrawOffer:
		return "draw agreed"
	case chess.Resignation:
		return "resignation"
	}
	return "game over"
}

// Resign ends the game as a loss for side.
func (b *Board) Resign(side chess.Color) Ending {
	b.game.Resign(side)
	return Ending{Outcome: b.game.Outcome(), Method: chess.Resignation, Reason: MethodReason(chess.Resignation)}
}
