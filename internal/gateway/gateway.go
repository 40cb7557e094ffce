package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trogers1052/earnings-gateway/internal/lock"
	"github.com/trogers1052/earnings-gateway/internal/models"
	"github.com/trogers1052/earnings-gateway/internal/table"
)

// DefaultUpdateColumnLimit bounds the columns Save may touch on its update path
const DefaultUpdateColumnLimit = 12

// Status strings returned by UpdateByKey
const (
	StatusUpdated  = "Updated"
	StatusNotFound = "Not found"
)

// StatusNoMatch is returned by Save when an update finds no row
const StatusNoMatch = "No matching row found for update"

// ErrMissingKey is returned when a keyed update lacks a key field
var ErrMissingKey = errors.New("missing key field")

// Locker serialises writers. The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context) (func(), error)
}

// Publisher receives an event after each successful mutation
type Publisher interface {
	PublishRecordEvent(ctx context.Context, event models.RecordEvent) error
}

// Gateway translates record operations into reads and writes on one table
type Gateway struct {
	store        table.Table
	name         string
	keyColumn    string
	dateColumn   string
	resultColumn string
	updateLimit  int
	locker       Locker
	publisher    Publisher
	logger       *slog.Logger
}

// Option configures a Gateway
type Option func(*Gateway)

// WithTableName sets the table name used in logs and events
func WithTableName(name string) Option {
	return func(g *Gateway) { g.name = name }
}

// WithKeyColumns sets the two columns that identify a record
func WithKeyColumns(key, date string) Option {
	return func(g *Gateway) {
		g.keyColumn = key
		g.dateColumn = date
	}
}

// WithResultColumn sets the column List filters on
func WithResultColumn(column string) Option {
	return func(g *Gateway) { g.resultColumn = column }
}

// WithUpdateColumnLimit bounds the update path of Save to the first n
// columns. n <= 0 removes the bound.
func WithUpdateColumnLimit(n int) Option {
	return func(g *Gateway) { g.updateLimit = n }
}

// WithLocker replaces the default in-process lock
func WithLocker(l Locker) Option {
	return func(g *Gateway) { g.locker = l }
}

// WithPublisher enables change events
func WithPublisher(p Publisher) Option {
	return func(g *Gateway) { g.publisher = p }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New creates a Gateway over store
func New(store table.Table, opts ...Option) *Gateway {
	g := &Gateway{
		store:        store,
		name:         "Earnings",
		keyColumn:    models.ColumnTicker,
		dateColumn:   models.ColumnOpenDate,
		resultColumn: models.ColumnResult,
		updateLimit:  DefaultUpdateColumnLimit,
		locker:       lock.NewLocal(),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// List returns every data row in table order. A non-empty status keeps only
// rows whose result column equals it.
func (g *Gateway) List(ctx context.Context, status string) ([]Record, error) {
	rows, hdr, err := g.load(ctx)
	if err != nil {
		return nil, err
	}

	resultCol, hasResult := hdr.col(g.resultColumn)
	records := make([]Record, 0, len(rows)-1)

	for i := 1; i < len(rows); i++ {
		if status != "" {
			if !hasResult || table.CellAt(rows[i], resultCol).String() != status {
				continue
			}
		}
		records = append(records, newRecord(i, hdr, rows[i]))
	}

	return records, nil
}

// Save updates the first row matching the payload key when the payload asks
// for an update, and otherwise fills the first row with an empty key or
// appends a new row. It returns a status line naming the row touched.
func (g *Gateway) Save(ctx context.Context, p Payload) (string, error) {
	if p.Action == ActionUpdate {
		return g.mutate(ctx, func(ctx context.Context, rows [][]table.Cell, hdr header) (string, *models.RecordEvent, error) {
			return g.updateMatching(ctx, rows, hdr, p)
		})
	}

	return g.mutate(ctx, func(ctx context.Context, rows [][]table.Cell, hdr header) (string, *models.RecordEvent, error) {
		return g.insert(ctx, rows, hdr, p)
	})
}

// UpdateByKey writes every payload field that names a column into the first
// row matching the payload key, across the whole header row.
func (g *Gateway) UpdateByKey(ctx context.Context, p Payload) (string, error) {
	for _, column := range []string{g.keyColumn, g.dateColumn} {
		if cell, ok := p.Get(column); !ok || cell.IsEmpty() {
			return "", fmt.Errorf("%w: %s", ErrMissingKey, column)
		}
	}

	return g.mutate(ctx, func(ctx context.Context, rows [][]table.Cell, hdr header) (string, *models.RecordEvent, error) {
		row, ok := g.findByKey(rows, hdr, p)
		if !ok {
			g.logger.Info("no row matches key",
				"table", g.name,
				"ticker", p.Fields[g.keyColumn].String(),
				"open_date", p.Fields[g.dateColumn].String(),
			)
			return StatusNotFound, nil, nil
		}

		written, err := g.writeFields(ctx, row, hdr, p, len(hdr.names))
		if err != nil {
			return "", nil, err
		}

		g.logger.Info("record updated", "table", g.name, "row", row+1, "columns", len(written))
		return StatusUpdated, g.event(models.EventRecordUpdated, row, p, written), nil
	})
}

type mutation func(ctx context.Context, rows [][]table.Cell, hdr header) (string, *models.RecordEvent, error)

// mutate runs fn under the write lock against a fresh read of the table and
// publishes the resulting event once the lock is released.
func (g *Gateway) mutate(ctx context.Context, fn mutation) (string, error) {
	status, event, err := g.locked(ctx, fn)
	if err != nil {
		return "", err
	}

	if event != nil && g.publisher != nil {
		if err := g.publisher.PublishRecordEvent(ctx, *event); err != nil {
			g.logger.Warn("failed to publish record event",
				"event_type", event.EventType,
				"row", event.Row,
				"error", err,
			)
		}
	}

	return status, nil
}

func (g *Gateway) locked(ctx context.Context, fn mutation) (string, *models.RecordEvent, error) {
	unlock, err := g.locker.Lock(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer unlock()

	rows, hdr, err := g.load(ctx)
	if err != nil {
		return "", nil, err
	}

	return fn(ctx, rows, hdr)
}

func (g *Gateway) load(ctx context.Context) ([][]table.Cell, header, error) {
	rows, err := g.store.ReadAll(ctx)
	if err != nil {
		return nil, header{}, fmt.Errorf("failed to read %s: %w", g.name, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, header{}, fmt.Errorf("failed to read %s: %w", g.name, table.ErrNoHeader)
	}

	return rows, newHeader(rows[0]), nil
}

func (g *Gateway) updateMatching(ctx context.Context, rows [][]table.Cell, hdr header, p Payload) (string, *models.RecordEvent, error) {
	row, ok := g.findByKey(rows, hdr, p)
	if !ok {
		g.logger.Info("update found no matching row", "table", g.name)
		return StatusNoMatch, nil, nil
	}

	limit := len(hdr.names)
	if g.updateLimit > 0 && g.updateLimit < limit {
		limit = g.updateLimit
	}

	written, err := g.writeFields(ctx, row, hdr, p, limit)
	if err != nil {
		return "", nil, err
	}

	g.logger.Info("record updated", "table", g.name, "row", row+1, "columns", len(written))
	return fmt.Sprintf("Updated row %d", row+1), g.event(models.EventRecordUpdated, row, p, written), nil
}

func (g *Gateway) insert(ctx context.Context, rows [][]table.Cell, hdr header, p Payload) (string, *models.RecordEvent, error) {
	cells := make([]table.Cell, len(hdr.names))
	written := make(map[string]string, len(hdr.index))
	for col, name := range hdr.names {
		if name == "" {
			continue
		}
		cells[col] = p.Fields[name]
		if hdr.primary(col) {
			written[name] = cells[col].String()
		}
	}

	keyCol, ok := hdr.col(g.keyColumn)
	if ok {
		for i := 1; i < len(rows); i++ {
			if !table.CellAt(rows[i], keyCol).IsEmpty() {
				continue
			}

			if err := table.WriteRow(ctx, g.store, i, 0, cells); err != nil {
				return "", nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
			}

			g.logger.Info("record inserted into empty row", "table", g.name, "row", i+1)
			return fmt.Sprintf("Inserted into empty row %d", i+1), g.event(models.EventRecordInserted, i, p, written), nil
		}
	}

	if err := g.store.AppendRow(ctx, cells); err != nil {
		return "", nil, fmt.Errorf("failed to append row: %w", err)
	}

	row := len(rows)
	g.logger.Info("record appended", "table", g.name, "row", row+1, "keyed", ok)

	status := fmt.Sprintf("Appended new row %d", row+1)
	if !ok {
		status = fmt.Sprintf("%s (no %s column)", status, g.keyColumn)
	}
	return status, g.event(models.EventRecordAppended, row, p, written), nil
}

// findByKey returns the first data row whose key and date columns equal the
// payload's. Both columns must exist and the payload must carry both values.
func (g *Gateway) findByKey(rows [][]table.Cell, hdr header, p Payload) (int, bool) {
	keyCol, ok := hdr.col(g.keyColumn)
	if !ok {
		return 0, false
	}
	dateCol, ok := hdr.col(g.dateColumn)
	if !ok {
		return 0, false
	}

	key, ok := p.Get(g.keyColumn)
	if !ok || key.IsEmpty() {
		return 0, false
	}
	date, ok := p.Get(g.dateColumn)
	if !ok {
		return 0, false
	}

	for i := 1; i < len(rows); i++ {
		if table.CellAt(rows[i], keyCol).Equal(key) && table.CellAt(rows[i], dateCol).Equal(date) {
			return i, true
		}
	}

	return 0, false
}

// writeFields writes the payload fields that name one of the first limit
// columns into row and returns what it wrote.
func (g *Gateway) writeFields(ctx context.Context, row int, hdr header, p Payload, limit int) (map[string]string, error) {
	written := make(map[string]string)

	for col := 0; col < limit && col < len(hdr.names); col++ {
		if !hdr.primary(col) {
			continue
		}
		name := hdr.names[col]
		cell, ok := p.Fields[name]
		if !ok {
			continue
		}

		if err := g.store.WriteCell(ctx, row, col, cell); err != nil {
			return written, fmt.Errorf("failed to write row %d column %q: %w", row+1, name, err)
		}
		written[name] = cell.String()
	}

	return written, nil
}

func (g *Gateway) event(eventType string, row int, p Payload, fields map[string]string) *models.RecordEvent {
	return &models.RecordEvent{
		EventType: eventType,
		Table:     g.name,
		Row:       row + 1,
		Ticker:    p.Fields[g.keyColumn].String(),
		OpenDate:  p.Fields[g.dateColumn].String(),
		Fields:    fields,
		Timestamp: time.Now(),
	}
}
