package table

import (
	"context"
	"errors"
)

var (
	// ErrNoTable is returned when the backing sheet does not exist
	ErrNoTable = errors.New("no active sheet")

	// ErrNoHeader is returned when the sheet exists but has no header row
	ErrNoHeader = errors.New("sheet has no header row")
)

// Table is the storage capability the gateway needs. Row and column indexes
// are zero based and row 0 is the header row.
type Table interface {
	// ReadAll returns every row of the table. Rows may be shorter than the
	// header row when trailing cells are empty.
	ReadAll(ctx context.Context) ([][]Cell, error)

	// WriteCell overwrites a single cell, growing the row if needed
	WriteCell(ctx context.Context, row, col int, cell Cell) error

	// AppendRow adds a row after the last row of the table
	AppendRow(ctx context.Context, cells []Cell) error
}

// RowWriter is implemented by tables that can overwrite a run of adjacent
// cells in one call.
type RowWriter interface {
	WriteRow(ctx context.Context, row, col int, cells []Cell) error
}

// WriteRow writes cells starting at (row, col), using the table's RowWriter
// when it has one and falling back to one WriteCell per cell otherwise.
func WriteRow(ctx context.Context, t Table, row, col int, cells []Cell) error {
	if w, ok := t.(RowWriter); ok {
		return w.WriteRow(ctx, row, col, cells)
	}

	for i, cell := range cells {
		if err := t.WriteCell(ctx, row, col+i, cell); err != nil {
			return err
		}
	}
	return nil
}

// CellAt returns the cell at index col of row, or an empty cell when the row
// is too short.
func CellAt(row []Cell, col int) Cell {
	if col < 0 || col >= len(row) {
		return Cell{}
	}
	return row[col]
}
