package book

import (
	"github.com/jacokyle01/chess-scheduler/rules"
	"github.com/notnil/chess"
	"github.com/rs/zerolog"
)

// Selector picks book moves for the scheduler. Once the source reports
// corruption the selector stays disabled until Replace.
type Selector struct {
	src      Source
	disabled error
	log      zerolog.Logger
}

// NewSelector wraps src. A nil src is an empty book.
func NewSelector(src Source, log zerolog.Logger) *Selector {
	return &Selector{src: src, log: log}
}

// Replace installs a new source and re-enables the selector.
func (s *Selector) Replace(src Source) {
	s.src = src
	s.disabled = nil
}

// Disable turns the book off for the rest of the session.
func (s *Selector) Disable(err error) {
	if s.disabled != nil {
		return
	}
	s.disabled = err
	s.log.Warn().Err(err).Msg("opening book disabled")
}

func (s *Selector) Enabled() bool {
	return s.src != nil && s.disabled == nil
}

// Err is the reason the book was disabled, if any.
func (s *Selector) Err() error {
	return s.disabled
}

// Select returns the highest-weighted entry for pos, the first one on ties.
// It returns nothing once pos's full-move number is past maxDepth.
func (s *Selector) Select(pos *chess.Position, maxDepth int) (Entry, bool, error) {
	if !s.Enabled() || rules.FullMoveNumber(pos) > maxDepth {
		return Entry{}, false, nil
	}
	entries, err := s.Candidates(pos)
	if err != nil {
		return Entry{}, false, err
	}
	best, found := Entry{}, false
	for _, e := range entries {
		if e.Weight <= 0 {
			continue
		}
		if !found || e.Weight > best.Weight {
			best, found = e, true
		}
	}
	return best, found, nil
}

// Candidates lists every entry for pos without the depth gate.
func (s *Selector) Candidates(pos *chess.Position) ([]Entry, error) {
	if !s.Enabled() {
		return nil, nil
	}
	entries, err := s.src.Lookup(pos)
	if err != nil {
		s.Disable(err)
		return nil, err
	}
	return entries, nil
}
