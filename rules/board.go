// Package rules adapts github.com/notnil/chess into the authoritative board
// used by the scheduler: a starting FEN plus an append-only list of legal moves.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrInvalidFEN    = errors.New("invalid FEN")
	ErrNothingToUndo = errors.New("no move to undo")
)

// Board is a game from a starting FEN. Only legal moves are ever appended.
type Board struct {
	startFEN string
	game     *chess.Game
}

func New(fen string) (*Board, error) {
	if strings.TrimSpace(fen) == "" {
		fen = StartFEN
	}
	game, err := newGame(fen)
	if err != nil {
		return nil, err
	}
	return &Board{startFEN: fen, game: game}, nil
}

func newGame(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return chess.NewGame(opt), nil
}

func (b *Board) StartFEN() string {
	return b.startFEN
}

func (b *Board) Position() *chess.Position {
	return b.game.Position()
}

func (b *Board) FEN() string {
	return b.game.Position().String()
}

func (b *Board) Turn() chess.Color {
	return b.game.Position().Turn()
}

// MoveCount is the number of moves played since the starting FEN.
func (b *Board) MoveCount() int {
	return len(b.game.Moves())
}

func (b *Board) FullMoveNumber() int {
	return FullMoveNumber(b.game.Position())
}

func (b *Board) LegalMoves() []*chess.Move {
	return b.game.ValidMoves()
}

// Find resolves a UCI move string against the legal moves of the current position.
func (b *Board) Find(uci string) (*chess.Move, bool) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	for _, m := range b.game.ValidMoves() {
		if m.String() == uci {
			return m, true
		}
	}
	return nil, false
}

// Legal returns the board's own copy of m if m is legal here.
func (b *Board) Legal(m *chess.Move) (*chess.Move, bool) {
	if m == nil {
		return nil, false
	}
	return b.Find(m.String())
}

// Apply plays m. It fails without touching the board when m is not legal.
func (b *Board) Apply(m *chess.Move) error {
	legal, ok := b.Legal(m)
	if !ok {
		return fmt.Errorf("move %v is not legal in %s", m, b.FEN())
	}
	return b.game.Move(legal)
}

// Undo drops the last move by replaying the rest from the starting FEN.
func (b *Board) Undo() error {
	moves := b.UCIMoves()
	if len(moves) == 0 {
		return ErrNothingToUndo
	}
	game, err := newGame(b.startFEN)
	if err != nil {
		return err
	}
	replay := &Board{startFEN: b.startFEN, game: game}
	for _, uci := range moves[:len(moves)-1] {
		m, ok := replay.Find(uci)
		if !ok {
			return fmt.Errorf("replaying %s: move no longer legal", uci)
		}
		if err := replay.game.Move(m); err != nil {
			return err
		}
	}
	b.game = replay.game
	return nil
}

func (b *Board) LastMove() *chess.Move {
	moves := b.game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

func (b *Board) UCIMoves() []string {
	moves := b.game.Moves()
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, m.String())
	}
	return out
}

func (b *Board) SANMoves() []string {
	moves := b.game.Moves()
	positions := b.game.Positions()
	out := make([]string, 0, len(moves))
	for i, m := range moves {
		out = append(out, chess.AlgebraicNotation{}.Encode(positions[i], m))
	}
	return out
}

// SAN renders m in the current position.
func (b *Board) SAN(m *chess.Move) string {
	return chess.AlgebraicNotation{}.Encode(b.game.Position(), m)
}

// SANLine converts a UCI line played from the current position, stopping at
// the first move that is not legal.
func (b *Board) SANLine(uci []string) []string {
	pos := b.game.Position()
	out := make([]string, 0, len(uci))
	for _, s := range uci {
		m, err := chess.UCINotation{}.Decode(pos, s)
		if err != nil || !containsMove(pos.ValidMoves(), m) {
			break
		}
		out = append(out, chess.AlgebraicNotation{}.Encode(pos, m))
		pos = pos.Update(m)
	}
	return out
}

func containsMove(moves []*chess.Move, m *chess.Move) bool {
	for _, mv := range moves {
		if mv.String() == m.String() {
			return true
		}
	}
	return false
}

// FullMoveNumber reads the full-move counter from the position's FEN.
func FullMoveNumber(pos *chess.Position) int {
	fields := strings.Fields(pos.String())
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// PositionKey is the FEN without the en passant square and move counters,
// so transpositions share a key.
func PositionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	return strings.Join(fields, " ")
}
