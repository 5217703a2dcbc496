// Package book reads weighted opening books and picks book moves.
package book

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jacokyle01/chess-scheduler/rules"
	"github.com/notnil/chess"
	"gopkg.in/yaml.v3"
)

// Entry is a candidate move in UCI notation with its weight.
type Entry struct {
	Move   string `yaml:"move" json:"move"`
	Weight int    `yaml:"weight" json:"weight"`
}

// Source looks up the weighted moves stored for a position, in the order
// the source recorded them.
type Source interface {
	Lookup(pos *chess.Position) ([]Entry, error)
}

// CorruptError reports a book that cannot be trusted.
type CorruptError struct {
	Source string
	Err    error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("opening book %s is corrupt: %v", e.Source, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Book is an in-memory Source keyed by position.
type Book struct {
	name      string
	positions map[string][]Entry
}

func newBook(name string) *Book {
	return &Book{name: name, positions: make(map[string][]Entry)}
}

func (b *Book) Name() string {
	return b.name
}

// Len is the number of positions with at least one entry.
func (b *Book) Len() int {
	return len(b.positions)
}

// add records move as played from pos. The key ignores the en passant
// square, so the move must be checked against pos itself.
func (b *Book) add(pos *chess.Position, move string, weight int) error {
	if !legalIn(pos, move) {
		return fmt.Errorf("move %s is not legal in %s", move, pos.String())
	}
	key := rules.PositionKey(pos.String())
	entries := b.positions[key]
	for i := range entries {
		if entries[i].Move == move {
			entries[i].Weight += weight
			return nil
		}
	}
	b.positions[key] = append(entries, Entry{Move: move, Weight: weight})
	return nil
}

func legalIn(pos *chess.Position, move string) bool {
	for _, m := range pos.ValidMoves() {
		if m.String() == move {
			return true
		}
	}
	return false
}

// Lookup returns the entries for pos that are legal there. Entries recorded
// from a transposition that differs only in its en passant square, such as
// an en passant capture, are skipped.
func (b *Book) Lookup(pos *chess.Position) ([]Entry, error) {
	entries := b.positions[rules.PositionKey(pos.String())]
	if len(entries) == 0 {
		return nil, nil
	}
	legal := make(map[string]bool)
	for _, m := range pos.ValidMoves() {
		legal[m.String()] = true
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if legal[e.Move] {
			out = append(out, e)
		}
	}
	return out, nil
}

// LoadPGN builds a book from the games in r. Each move played from a
// position adds one to that move's weight. maxPlies limits how deep into
// each game moves are recorded; zero means no limit.
func LoadPGN(r io.Reader, name string, maxPlies int) (*Book, error) {
	b := newBook(name)
	scanner := chess.NewScanner(r)
	for scanner.Scan() {
		game := scanner.Next()
		positions := game.Positions()
		for i, m := range game.Moves() {
			if maxPlies > 0 && i >= maxPlies {
				break
			}
			if err := b.add(positions[i], m.String(), 1); err != nil {
				return nil, &CorruptError{Source: name, Err: err}
			}
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, &CorruptError{Source: name, Err: err}
	}
	return b, nil
}

type yamlBook struct {
	Positions []struct {
		FEN   string  `yaml:"fen"`
		Moves []Entry `yaml:"moves"`
	} `yaml:"positions"`
}

// LoadYAML reads a book of the form
//
//	positions:
//	  - fen: "<fen>"
//	    moves:
//	      - {move: e2e4, weight: 10}
//
// Every move must be legal in the position it is listed under.
func LoadYAML(r io.Reader, name string) (*Book, error) {
	var doc yamlBook
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &CorruptError{Source: name, Err: err}
	}
	b := newBook(name)
	for _, p := range doc.Positions {
		opt, err := chess.FEN(p.FEN)
		if err != nil {
			return nil, &CorruptError{Source: name, Err: fmt.Errorf("bad fen %q: %w", p.FEN, err)}
		}
		pos := chess.NewGame(opt).Position()
		for _, e := range p.Moves {
			if e.Weight < 0 {
				return nil, &CorruptError{Source: name, Err: fmt.Errorf("negative weight for %s", e.Move)}
			}
			if err := b.add(pos, strings.ToLower(strings.TrimSpace(e.Move)), e.Weight); err != nil {
				return nil, &CorruptError{Source: name, Err: err}
			}
		}
	}
	return b, nil
}

// Load opens path and picks the format from its extension.
func Load(path string, maxPlies int) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open book: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pgn":
		return LoadPGN(f, path, maxPlies)
	case ".yaml", ".yml":
		return LoadYAML(f, path)
	}
	return nil, fmt.Errorf("unsupported book format %q", filepath.Ext(path))
}
