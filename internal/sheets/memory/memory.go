// Package memory is an in-process sheets.Mirror for development and tests.
package memory

import (
	"context"
	"sync"

	"expenses/internal/sheets"
)

type Sheet struct {
	mu   sync.Mutex
	rows []sheets.Row
	// cleared rows keep their slot, as a spreadsheet would.
	cleared map[int]bool
}

var _ sheets.Mirror = (*Sheet)(nil)

func New() *Sheet {
	return &Sheet{cleared: map[int]bool{}}
}

func (s *Sheet) Append(_ context.Context, row sheets.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

func (s *Sheet) Update(_ context.Context, row sheets.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(row.ID); i >= 0 {
		s.rows[i] = row
		return nil
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *Sheet) Clear(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.cleared[i] = true
	}
	return nil
}

// Rows returns the rows that have not been cleared, in sheet order.
func (s *Sheet) Rows() []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.Row, 0, len(s.rows))
	for i, r := range s.rows {
		if !s.cleared[i] {
			out = append(out, r)
		}
	}
	return out
}

func (s *Sheet) index(id int64) int {
	for i, r := range s.rows {
		if r.ID == id && !s.cleared[i] {
			return i
		}
	}
	return -1
}
