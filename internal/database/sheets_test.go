package database

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/earnings-gateway/internal/gateway"
	"github.com/trogers1052/earnings-gateway/internal/table"
)

func TestSheetStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	ctx := context.Background()

	t.Run("missing sheet", func(t *testing.T) {
		testDB.TruncateAll(t)
		store := testDB.Sheet("Earnings")

		_, err := store.ReadAll(ctx)
		assert.ErrorIs(t, err, table.ErrNoTable)

		err = store.AppendRow(ctx, []table.Cell{table.NewText("AAPL")})
		assert.ErrorIs(t, err, table.ErrNoTable)

		err = store.WriteCell(ctx, 1, 0, table.NewText("AAPL"))
		assert.ErrorIs(t, err, table.ErrNoTable)
	})

	t.Run("EnsureSheet writes headers once", func(t *testing.T) {
		testDB.TruncateAll(t)
		store := testDB.Sheet("Earnings")

		created, err := store.EnsureSheet(ctx, []string{"Ticker", "Open Date", "Result"})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = store.EnsureSheet(ctx, []string{"Other"})
		require.NoError(t, err)
		assert.False(t, created)

		rows, err := store.ReadAll(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Len(t, rows[0], 3)
		assert.Equal(t, "Open Date", rows[0][1].String())
	})

	t.Run("append and overwrite keep cell kinds", func(t *testing.T) {
		testDB.TruncateAll(t)
		store := testDB.Sheet("Earnings")
		_, err := store.EnsureSheet(ctx, []string{"Ticker", "Open Date", "Spread Cost", "Hedged"})
		require.NoError(t, err)

		err = store.AppendRow(ctx, []table.Cell{
			table.NewText("AAPL"),
			table.NewText("2025-01-02"),
			table.NewNumber(decimal.RequireFromString("1.35")),
			table.NewBool(true),
		})
		require.NoError(t, err)

		// a sparse row still counts towards the row total
		require.NoError(t, store.AppendRow(ctx, []table.Cell{{}, table.NewText("2025-01-03")}))

		require.NoError(t, store.WriteCell(ctx, 1, 2, table.NewNumber(decimal.RequireFromString("2.5"))))

		rows, err := store.ReadAll(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		assert.Equal(t, table.Number, rows[1][2].Kind)
		assert.Equal(t, "2.5", rows[1][2].String())
		assert.Equal(t, table.Bool, rows[1][3].Kind)
		assert.True(t, rows[1][3].Bool)
		assert.True(t, table.CellAt(rows[2], 0).IsEmpty())
		assert.Equal(t, "2025-01-03", rows[2][1].String())
	})

	t.Run("writes past the end grow the sheet", func(t *testing.T) {
		testDB.TruncateAll(t)
		store := testDB.Sheet("Earnings")
		_, err := store.EnsureSheet(ctx, []string{"Ticker"})
		require.NoError(t, err)

		require.NoError(t, table.WriteRow(ctx, store, 4, 0, []table.Cell{table.NewText("NVDA"), table.NewText("x")}))

		rows, err := store.ReadAll(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 5)
		assert.Empty(t, rows[2])
		assert.Equal(t, "NVDA", rows[4][0].String())
	})

	t.Run("gateway over postgres", func(t *testing.T) {
		testDB.TruncateAll(t)
		store := testDB.Sheet("Earnings")
		_, err := store.EnsureSheet(ctx, []string{"Ticker", "Open Date", "Result"})
		require.NoError(t, err)

		gw := gateway.New(store)

		p, err := gateway.NewPayload(map[string]any{"Ticker": "AAPL", "Open Date": "2025-01-02", "Result": "OPEN"})
		require.NoError(t, err)
		status, err := gw.Save(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "Appended new row 2", status)

		p, err = gateway.NewPayload(map[string]any{"Ticker": "AAPL", "Open Date": "2025-01-02", "Result": "CLOSED"})
		require.NoError(t, err)
		status, err = gw.UpdateByKey(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, gateway.StatusUpdated, status)

		records, err := gw.List(ctx, "CLOSED")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "AAPL", records[0].Get("Ticker").String())
	})
}
