package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/trogers1052/earnings-gateway/internal/table"
)

// ActionUpdate selects the update path of Save
const ActionUpdate = "update"

const actionField = "action"

// Payload is a flat set of column values sent by a client
type Payload struct {
	Action string
	Fields map[string]table.Cell
}

// DecodePayload reads a JSON object from r. Numbers keep their literal digits.
func DecodePayload(r io.Reader) (Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Payload{}, fmt.Errorf("invalid payload (%w)", err)
	}
	if raw == nil {
		return Payload{}, errors.New("invalid payload (expected a JSON object)")
	}

	return NewPayload(raw)
}

// NewPayload builds a Payload from decoded values. An "action" entry becomes
// the Action rather than a field.
func NewPayload(values map[string]any) (Payload, error) {
	p := Payload{Fields: make(map[string]table.Cell, len(values))}

	for k, v := range values {
		if k == actionField {
			s, ok := v.(string)
			if !ok {
				return Payload{}, fmt.Errorf("invalid payload (action must be a string, got %T)", v)
			}
			p.Action = s
			continue
		}

		cell, err := table.CellFromAny(v)
		if err != nil {
			return Payload{}, fmt.Errorf("invalid payload (field %q: %w)", k, err)
		}
		p.Fields[k] = cell
	}

	return p, nil
}

// Get returns the value for a column and whether the payload carries it
func (p Payload) Get(column string) (table.Cell, bool) {
	cell, ok := p.Fields[column]
	return cell, ok
}
