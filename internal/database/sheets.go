package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/trogers1052/earnings-gateway/internal/table"
)

// SheetStore is a table.Table persisted as one row per non-empty cell
type SheetStore struct {
	db   *DB
	name string
}

// Sheet returns the store for the named sheet. The sheet need not exist yet.
func (db *DB) Sheet(name string) *SheetStore {
	return &SheetStore{db: db, name: name}
}

// EnsureSheet creates the sheet with the given header row unless it already
// exists. It reports whether the sheet was created.
func (s *SheetStore) EnsureSheet(ctx context.Context, headers []string) (bool, error) {
	created := false

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO sheets (name, row_count, created_at, updated_at)
			VALUES ($1, 1, NOW(), NOW())
			ON CONFLICT (name) DO NOTHING
		`, s.name)
		if err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return nil
		}

		for col, h := range headers {
			if err := s.upsert(ctx, tx, 0, col, table.NewText(h)); err != nil {
				return err
			}
		}
		created = true
		return nil
	})

	return created, err
}

// ReadAll returns every row from one consistent snapshot
func (s *SheetStore) ReadAll(ctx context.Context) ([][]table.Cell, error) {
	tx, err := s.db.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rowCount int
	err = tx.QueryRowContext(ctx, `SELECT row_count FROM sheets WHERE name = $1`, s.name).Scan(&rowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, table.ErrNoTable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet %s: %w", s.name, err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT row_index, col_index, kind, value
		FROM sheet_cells
		WHERE sheet = $1
		ORDER BY row_index, col_index
	`, s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to query cells: %w", err)
	}
	defer rows.Close()

	result := make([][]table.Cell, rowCount)
	for rows.Next() {
		var r, c int
		var kind table.Kind
		var value string
		if err := rows.Scan(&r, &c, &kind, &value); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		if r >= rowCount {
			continue
		}

		cell, err := table.ParseCell(kind, value)
		if err != nil {
			return nil, fmt.Errorf("cell (%d, %d): %w", r, c, err)
		}
		for len(result[r]) <= c {
			result[r] = append(result[r], table.Cell{})
		}
		result[r][c] = cell
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cells: %w", err)
	}

	return result, nil
}

// WriteCell overwrites one cell
func (s *SheetStore) WriteCell(ctx context.Context, row, col int, cell table.Cell) error {
	return s.WriteRow(ctx, row, col, []table.Cell{cell})
}

// WriteRow overwrites a run of cells in one transaction
func (s *SheetStore) WriteRow(ctx context.Context, row, col int, cells []table.Cell) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("invalid cell position (%d, %d)", row, col)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE sheets SET row_count = GREATEST(row_count, $2), updated_at = NOW()
			WHERE name = $1
		`, s.name, row+1)
		if err != nil {
			return fmt.Errorf("failed to update sheet %s: %w", s.name, err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return table.ErrNoTable
		}

		for i, cell := range cells {
			if err := s.upsert(ctx, tx, row, col+i, cell); err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendRow adds a row after the last row
func (s *SheetStore) AppendRow(ctx context.Context, cells []table.Cell) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var rowCount int
		err := tx.QueryRowContext(ctx, `
			UPDATE sheets SET row_count = row_count + 1, updated_at = NOW()
			WHERE name = $1
			RETURNING row_count
		`, s.name).Scan(&rowCount)
		if errors.Is(err, sql.ErrNoRows) {
			return table.ErrNoTable
		}
		if err != nil {
			return fmt.Errorf("failed to append to sheet %s: %w", s.name, err)
		}

		row := rowCount - 1
		for col, cell := range cells {
			if cell.IsEmpty() {
				continue
			}
			if err := s.upsert(ctx, tx, row, col, cell); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SheetStore) upsert(ctx context.Context, tx *sql.Tx, row, col int, cell table.Cell) error {
	query := `
		INSERT INTO sheet_cells (sheet, row_index, col_index, kind, value, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (sheet, row_index, col_index) DO UPDATE SET
			kind = EXCLUDED.kind,
			value = EXCLUDED.value,
			updated_at = NOW()
	`
	if _, err := tx.ExecContext(ctx, query, s.name, row, col, int(cell.Kind), cell.String()); err != nil {
		return fmt.Errorf("failed to write cell (%d, %d): %w", row, col, err)
	}
	return nil
}

func (s *SheetStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
