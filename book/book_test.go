package book

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"
)

const twoGames = `[Event "A"]
[Site "?"]
[Date "????.??.??"]
[Round "?"]
[White "?"]
[Black "?"]
[Result "1-0"]

1. e4 e5 2. Nf3 Nc6 1-0

[Event "B"]
[Site "?"]
[Date "????.??.??"]
[Round "?"]
[White "?"]
[Black "?"]
[Result "0-1"]

1. e4 c5 2. Nf3 d6 0-1
`

func position(t *testing.T, fen string) *chess.Position {
	t.Helper()
	opt, err := chess.FEN(fen)
	if err != nil {
		t.Fatalf("bad fen %q: %v", fen, err)
	}
	return chess.NewGame(opt).Position()
}

func TestPGNWeightsCountOccurrences(t *testing.T) {
	b, err := LoadPGN(strings.NewReader(twoGames), "games.pgn", 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	start := chess.NewGame().Position()
	entries, err := b.Lookup(start)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(entries) != 1 || entries[0].Move != "e2e4" || entries[0].Weight != 2 {
		t.Fatalf("unexpected start entries %+v", entries)
	}

	afterE4 := position(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	entries, err = b.Lookup(afterE4)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(entries) != 2 || entries[0].Move != "e7e5" || entries[1].Move != "c7c5" {
		t.Fatalf("entries should keep encounter order: %+v", entries)
	}
}

func TestPGNMaxPlies(t *testing.T) {
	b, err := LoadPGN(strings.NewReader(twoGames), "games.pgn", 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("only the start position should be recorded, got %d", b.Len())
	}
}

const yamlBookText = `positions:
  - fen: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
    moves:
      - {move: d2d4, weight: 5}
      - {move: e2e4, weight: 9}
      - {move: c2c4, weight: 9}
`

func TestSelectorHighestWeightFirstOnTies(t *testing.T) {
	b, err := LoadYAML(strings.NewReader(yamlBookText), "book.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := NewSelector(b, zerolog.Nop())
	e, ok, err := s.Select(chess.NewGame().Position(), 10)
	if err != nil || !ok {
		t.Fatalf("expected a book move, ok=%v err=%v", ok, err)
	}
	if e.Move != "e2e4" || e.Weight != 9 {
		t.Fatalf("got %+v want e2e4 (first of the tied top weights)", e)
	}
}

func TestSelectorDepthGate(t *testing.T) {
	text := `positions:
  - fen: "4k3/8/8/8/8/8/4P3/4K3 w - - 0 11"
    moves:
      - {move: e2e4, weight: 3}
`
	b, err := LoadYAML(strings.NewReader(text), "late.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := NewSelector(b, zerolog.Nop())
	pos := position(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 11")
	if _, ok, _ := s.Select(pos, 10); ok {
		t.Fatalf("move 11 is past a depth of 10")
	}
	if _, ok, _ := s.Select(pos, 11); !ok {
		t.Fatalf("move 11 is within a depth of 11")
	}
}

func TestSelectorWithoutBook(t *testing.T) {
	s := NewSelector(nil, zerolog.Nop())
	if _, ok, err := s.Select(chess.NewGame().Position(), 10); ok || err != nil {
		t.Fatalf("empty selector returned ok=%v err=%v", ok, err)
	}
	b, _ := LoadYAML(strings.NewReader(yamlBookText), "book.yaml")
	s.Replace(b)
	pos := position(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	if _, ok, err := s.Select(pos, 10); ok || err != nil {
		t.Fatalf("unknown position returned ok=%v err=%v", ok, err)
	}
}

type staleSource struct{ err error }

func (s staleSource) Lookup(*chess.Position) ([]Entry, error) {
	return nil, s.err
}

func TestIllegalEntryIsCorruptAtLoad(t *testing.T) {
	text := `positions:
  - fen: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
    moves:
      - {move: e2e5, weight: 50}
`
	_, err := LoadYAML(strings.NewReader(text), "bad.yaml")
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptError, got %v", err)
	}
}

func TestLookupErrorDisablesSelector(t *testing.T) {
	s := NewSelector(staleSource{err: &CorruptError{Source: "stale", Err: errors.New("truncated")}}, zerolog.Nop())
	_, ok, err := s.Select(chess.NewGame().Position(), 10)
	var corrupt *CorruptError
	if ok || !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptError, ok=%v err=%v", ok, err)
	}
	if s.Enabled() || s.Err() == nil {
		t.Fatalf("selector should be disabled")
	}
	if _, _, err := s.Select(chess.NewGame().Position(), 10); err != nil {
		t.Fatalf("disabled selector should quietly return nothing, got %v", err)
	}
}

const enPassantGame = `[Event "EP"]
[Site "?"]
[Date "????.??.??"]
[Round "?"]
[White "?"]
[Black "?"]
[Result "*"]

1. e4 Nf6 2. e5 d5 3. exd6 *
`

func play(t *testing.T, moves ...string) *chess.Position {
	t.Helper()
	game := chess.NewGame()
	for _, s := range moves {
		m, err := chess.UCINotation{}.Decode(game.Position(), s)
		if err != nil {
			t.Fatalf("decode %s: %v", s, err)
		}
		if err := game.Move(m); err != nil {
			t.Fatalf("move %s: %v", s, err)
		}
	}
	return game.Position()
}

func TestEnPassantTranspositionKeepsBook(t *testing.T) {
	b, err := LoadPGN(strings.NewReader(enPassantGame), "ep.pgn", 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := NewSelector(b, zerolog.Nop())

	// Same placement as after 2...d5 but the pawn came from d6, so no en passant.
	pos := play(t, "e2e4", "d7d6", "d1f3", "g8f6", "f3e2", "f6g4", "e2d1", "g4f6", "e4e5", "d6d5")
	e, ok, err := s.Select(pos, 10)
	if err != nil || ok {
		t.Fatalf("exd6 is not legal here, got %+v ok=%v err=%v", e, ok, err)
	}
	if !s.Enabled() {
		t.Fatalf("selector was disabled: %v", s.Err())
	}

	pos = play(t, "e2e4", "g8f6", "e4e5", "d7d5")
	e, ok, err = s.Select(pos, 10)
	if err != nil || !ok || e.Move != "e5d6" {
		t.Fatalf("book line should offer exd6, got %+v ok=%v err=%v", e, ok, err)
	}
}

func TestBadYAMLIsCorrupt(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("positions:\n  - fen: \"nonsense\"\n"), "x.yaml")
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptError, got %v", err)
	}
}

func TestLoadPicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.yml")
	if err := os.WriteFile(path, []byte(yamlBookText), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := Load(path, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("positions: got %d want 1", b.Len())
	}
	if _, err := Load(filepath.Join(dir, "book.bin"), 0); err == nil {
		t.Fatalf("missing file should fail")
	}
	other := filepath.Join(dir, "book.txt")
	os.WriteFile(other, []byte("x"), 0o644)
	if _, err := Load(other, 0); err == nil {
		t.Fatalf("unknown extension should fail")
	}
}
