package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/trogers1052/earnings-gateway/internal/table"
)

var spreadsheetURL = regexp.MustCompile(`^https://docs.google.com/spreadsheets/d/(.*?)(?:/.*)?$`)

// SpreadsheetID extracts the document ID from a Google Sheets URL. A bare ID
// is returned unchanged.
func SpreadsheetID(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("spreadsheet URL is required")
	}

	if !strings.HasPrefix(url, "https://") {
		return url, nil
	}

	match := spreadsheetURL.FindStringSubmatch(url)
	if len(match) < 2 || match[1] == "" {
		return "", fmt.Errorf("invalid spreadsheet URL %q - expected something like 'https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms'", url)
	}

	return match[1], nil
}

// NewService creates a Sheets client from a service account or OAuth client
// credentials file
func NewService(ctx context.Context, credentials string) (*gsheets.Service, error) {
	b, err := os.ReadFile(credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, b, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials (%w)", err)
	}

	service, err := gsheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create new Sheets client (%w)", err)
	}

	return service, nil
}

// Store is a table.Table backed by one worksheet
type Store struct {
	service     *gsheets.Service
	spreadsheet string
	sheet       string
}

// New creates a Store for the named worksheet
func New(service *gsheets.Service, spreadsheet, sheet string) *Store {
	return &Store{
		service:     service,
		spreadsheet: spreadsheet,
		sheet:       sheet,
	}
}

// ReadAll fetches the whole worksheet. Numbers come back unformatted and
// dates as their displayed text.
func (s *Store) ReadAll(ctx context.Context) ([][]table.Cell, error) {
	response, err := s.service.Spreadsheets.Values.Get(s.spreadsheet, quote(s.sheet)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, s.wrap("unable to retrieve data from sheet", err)
	}

	rows := make([][]table.Cell, len(response.Values))
	for i, vals := range response.Values {
		row := make([]table.Cell, len(vals))
		for j, v := range vals {
			cell, err := table.CellFromAny(v)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %d: %w", s.sheet, i+1, j+1, err)
			}
			row[j] = cell
		}
		rows[i] = row
	}

	return rows, nil
}

// WriteCell overwrites one cell
func (s *Store) WriteCell(ctx context.Context, row, col int, cell table.Cell) error {
	return s.WriteRow(ctx, row, col, []table.Cell{cell})
}

// WriteRow overwrites a run of cells in one request
func (s *Store) WriteRow(ctx context.Context, row, col int, cells []table.Cell) error {
	if len(cells) == 0 {
		return nil
	}

	area := fmt.Sprintf("%s!%s%d:%s%d", quote(s.sheet), ColumnName(col), row+1, ColumnName(col+len(cells)-1), row+1)
	rq := gsheets.ValueRange{
		Range:  area,
		Values: [][]interface{}{values(cells)},
	}

	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheet, area, &rq).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return s.wrap(fmt.Sprintf("unable to update %s", area), err)
	}

	return nil
}

// AppendRow adds a row after the last row of the worksheet
func (s *Store) AppendRow(ctx context.Context, cells []table.Cell) error {
	rq := gsheets.ValueRange{
		Values: [][]interface{}{values(cells)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheet, quote(s.sheet), &rq).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return s.wrap("unable to append row", err)
	}

	return nil
}

// wrap maps "Unable to parse range" (the worksheet does not exist) to
// table.ErrNoTable
func (s *Store) wrap(msg string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range") {
			return fmt.Errorf("%s (%v): %w", msg, gerr.Message, table.ErrNoTable)
		}
		if gerr.Code == http.StatusNotFound {
			return fmt.Errorf("%s (%v): %w", msg, gerr.Message, table.ErrNoTable)
		}
	}

	return fmt.Errorf("%s (%w)", msg, err)
}

// ColumnName converts a zero based column index to A1 notation, so 0 is "A"
// and 26 is "AA"
func ColumnName(col int) string {
	name := ""
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		name = string(rune('A'+(n-1)%26)) + name
	}
	return name
}

func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func values(cells []table.Cell) []interface{} {
	row := make([]interface{}, len(cells))
	for i, cell := range cells {
		switch cell.Kind {
		case table.Bool:
			row[i] = cell.Bool
		default:
			row[i] = cell.String()
		}
	}
	return row
}
