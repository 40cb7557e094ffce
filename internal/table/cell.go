package table

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Kind identifies the scalar type held by a Cell
type Kind int

// Cell kinds
const (
	Empty Kind = iota
	Text
	Number
	Bool
)

// Cell is a single scalar value in a table
type Cell struct {
	Kind   Kind
	Text   string
	Number decimal.Decimal
	Bool   bool
}

// NewText returns a text cell. An empty string yields an empty cell.
func NewText(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: Text, Text: s}
}

// NewNumber returns a numeric cell
func NewNumber(d decimal.Decimal) Cell {
	return Cell{Kind: Number, Number: d}
}

// NewBool returns a boolean cell
func NewBool(b bool) Cell {
	return Cell{Kind: Bool, Bool: b}
}

// CellFromAny converts a decoded JSON or Sheets API value into a Cell
func CellFromAny(v any) (Cell, error) {
	switch x := v.(type) {
	case nil:
		return Cell{}, nil
	case Cell:
		return x, nil
	case string:
		return NewText(x), nil
	case bool:
		return NewBool(x), nil
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return Cell{}, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return NewNumber(d), nil
	case float64:
		return NewNumber(decimal.NewFromFloat(x)), nil
	case int:
		return NewNumber(decimal.NewFromInt(int64(x))), nil
	case int64:
		return NewNumber(decimal.NewFromInt(x)), nil
	case decimal.Decimal:
		return NewNumber(x), nil
	default:
		return Cell{}, fmt.Errorf("unsupported cell value of type %T", v)
	}
}

// ParseCell rebuilds a cell from its kind and canonical text
func ParseCell(kind Kind, s string) (Cell, error) {
	switch kind {
	case Empty:
		return Cell{}, nil
	case Text:
		return NewText(s), nil
	case Number:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Cell{}, fmt.Errorf("invalid number %q: %w", s, err)
		}
		return NewNumber(d), nil
	case Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Cell{}, fmt.Errorf("invalid bool %q: %w", s, err)
		}
		return NewBool(b), nil
	default:
		return Cell{}, fmt.Errorf("unknown cell kind %d", kind)
	}
}

// IsEmpty reports whether the cell holds no value
func (c Cell) IsEmpty() bool {
	return c.Kind == Empty || (c.Kind == Text && c.Text == "")
}

// String returns the canonical text form of the cell, which is also what key
// comparisons use.
func (c Cell) String() string {
	switch c.Kind {
	case Text:
		return c.Text
	case Number:
		return c.Number.String()
	case Bool:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

// Equal compares two cells by their canonical text
func (c Cell) Equal(other Cell) bool {
	return c.String() == other.String()
}

// MarshalJSON renders numbers and booleans as JSON literals and everything
// else as a string. Empty cells become "".
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case Number:
		return []byte(c.Number.String()), nil
	case Bool:
		return json.Marshal(c.Bool)
	default:
		return json.Marshal(c.String())
	}
}

// UnmarshalJSON accepts any JSON scalar
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if n, ok := v.(float64); ok {
		// keep the literal digits rather than the float64 rendering
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			d = decimal.NewFromFloat(n)
		}
		*c = NewNumber(d)
		return nil
	}
	cell, err := CellFromAny(v)
	if err != nil {
		return err
	}
	*c = cell
	return nil
}
