// Package memory is an in-process LedgerAppender used in tests and as
// a stand-in when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"scontrini/internal/core"
)

type Row struct {
	Month string
	Entry core.LedgerEntry
}

type Store struct {
	mu   sync.Mutex
	rows []Row
}

func New() *Store {
	return &Store{}
}

func (s *Store) AppendEntries(_ context.Context, month string, entries []core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.rows = append(s.rows, Row{Month: month, Entry: e})
	}
	return nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}
