// Package watchlist provides the in-process list of tracked ticker symbols.
package watchlist

import (
	"fmt"
	"strings"
	"sync"
)

// Store is an ordered set of upper-cased ticker symbols, safe for concurrent use.
// Symbols are never removed; the list lives as long as the Store.
type Store struct {
	mu      sync.RWMutex
	symbols []string
	index   map[string]struct{}
}

// New returns a Store seeded with the given symbols in order. Duplicate and
// blank seeds are dropped.
func New(seed ...string) *Store {
	s := &Store{
		symbols: make([]string, 0, len(seed)),
		index:   make(map[string]struct{}, len(seed)),
	}
	for _, t := range seed {
		s.insert(Normalize(t))
	}
	return s
}

// Normalize upper-cases and trims a ticker symbol
func Normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// View returns the symbols joined by ", " in insertion order
func (s *Store) View() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.Join(s.symbols, ", ")
}

// Add appends ticker if it is not already present and returns a message
// describing what happened. The message echoes ticker as given.
func (s *Store) Add(ticker string) string {
	symbol, added := s.AddSymbol(ticker)
	if symbol == "" {
		return "Ticker symbol must not be empty."
	}
	if added {
		return fmt.Sprintf("Added %s to watchlist.", ticker)
	}
	return fmt.Sprintf("%s is already in the watchlist.", ticker)
}

// AddSymbol is Add without the message: it returns the normalized symbol and
// whether it was inserted.
func (s *Store) AddSymbol(ticker string) (string, bool) {
	symbol := Normalize(ticker)

	s.mu.Lock()
	defer s.mu.Unlock()
	return symbol, s.insert(symbol)
}

// insert requires s.mu held for writing (or exclusive access during New)
func (s *Store) insert(symbol string) bool {
	if symbol == "" {
		return false
	}
	if _, ok := s.index[symbol]; ok {
		return false
	}
	s.index[symbol] = struct{}{}
	s.symbols = append(s.symbols, symbol)
	return true
}

// Contains reports whether ticker is on the list, ignoring case
func (s *Store) Contains(ticker string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[Normalize(ticker)]
	return ok
}

// Symbols returns a copy of the current list
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Len returns the number of symbols on the list
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}
