package table

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Table
type Memory struct {
	mu      sync.RWMutex
	rows    [][]Cell
	dropped bool
}

// NewMemory creates a table whose header row holds the given column names
func NewMemory(headers ...string) *Memory {
	header := make([]Cell, len(headers))
	for i, h := range headers {
		header[i] = NewText(h)
	}
	return &Memory{rows: [][]Cell{header}}
}

// NewMemoryFromRows creates a table from raw rows, header first. Values are
// converted with CellFromAny.
func NewMemoryFromRows(rows [][]any) (*Memory, error) {
	m := &Memory{rows: make([][]Cell, 0, len(rows))}
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cell, err := CellFromAny(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			cells[j] = cell
		}
		m.rows = append(m.rows, cells)
	}
	return m, nil
}

// Drop makes the table behave like a deleted sheet
func (m *Memory) Drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = true
}

// ReadAll returns a copy of every row
func (m *Memory) ReadAll(ctx context.Context) ([][]Cell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dropped {
		return nil, ErrNoTable
	}

	rows := make([][]Cell, len(m.rows))
	for i, row := range m.rows {
		rows[i] = append([]Cell(nil), row...)
	}
	return rows, nil
}

// WriteCell overwrites one cell. Writing below the last row grows the table.
func (m *Memory) WriteCell(ctx context.Context, row, col int, cell Cell) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dropped {
		return ErrNoTable
	}
	if row < 0 || col < 0 {
		return fmt.Errorf("invalid cell position (%d, %d)", row, col)
	}

	for len(m.rows) <= row {
		m.rows = append(m.rows, nil)
	}
	for len(m.rows[row]) <= col {
		m.rows[row] = append(m.rows[row], Cell{})
	}
	m.rows[row][col] = cell
	return nil
}

// AppendRow adds a row at the end of the table
func (m *Memory) AppendRow(ctx context.Context, cells []Cell) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dropped {
		return ErrNoTable
	}
	m.rows = append(m.rows, append([]Cell(nil), cells...))
	return nil
}

// Len returns the number of rows including the header
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
