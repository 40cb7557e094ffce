package gateway

import (
	"bytes"
	"encoding/json"

	"github.com/trogers1052/earnings-gateway/internal/table"
)

// header indexes the column names of row 0. When a name repeats, the first
// column wins.
type header struct {
	names []string
	index map[string]int
}

func newHeader(row []table.Cell) header {
	h := header{
		names: make([]string, len(row)),
		index: make(map[string]int, len(row)),
	}

	for i, cell := range row {
		name := cell.String()
		h.names[i] = name
		if name == "" {
			continue
		}
		if _, ok := h.index[name]; !ok {
			h.index[name] = i
		}
	}

	return h
}

func (h header) col(name string) (int, bool) {
	ix, ok := h.index[name]
	return ix, ok
}

// primary reports whether col is the column a name resolves to
func (h header) primary(col int) bool {
	name := h.names[col]
	if name == "" {
		return false
	}
	return h.index[name] == col
}

// Record is one data row keyed by the header row
type Record struct {
	// Row is the zero based table row, so the header is row 0
	Row int

	header header
	cells  []table.Cell
}

func newRecord(row int, h header, cells []table.Cell) Record {
	return Record{Row: row, header: h, cells: cells}
}

// Get returns the value of a column, empty when the column is unknown
func (r Record) Get(column string) table.Cell {
	col, ok := r.header.col(column)
	if !ok {
		return table.Cell{}
	}
	return table.CellAt(r.cells, col)
}

// Fields returns the record as a plain map
func (r Record) Fields() map[string]table.Cell {
	fields := make(map[string]table.Cell, len(r.header.index))
	for name, col := range r.header.index {
		fields[name] = table.CellAt(r.cells, col)
	}
	return fields
}

// MarshalJSON writes an object whose keys follow the header order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	for col, name := range r.header.names {
		if !r.header.primary(col) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(table.CellAt(r.cells, col))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
