package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// IDHeader names the column that holds row identifiers. Sheets without it
// address rows by position ("row-<n>").
const IDHeader = "_id"

const rowIDPrefix = "row-"

// Backend implements service.TableBackend on one spreadsheet. Each tab is a
// table whose first row holds the column names.
type Backend struct {
	srv           *sheets.Service
	headers       map[string][]string
	rowIndex      map[string]map[string]int
	spreadsheetID string
	mu            sync.Mutex
}

// NewBackend authenticates and returns a backend for config.SpreadsheetID.
func NewBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewBackendWithService(srv, config.SpreadsheetID), nil
}

// NewBackendWithService wraps an existing Sheets client.
func NewBackendWithService(srv *sheets.Service, spreadsheetID string) *Backend {
	return &Backend{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		headers:       make(map[string][]string),
		rowIndex:      make(map[string]map[string]int),
	}
}

// CreateTable implements service.TableBackend by adding a tab.
func (b *Backend) CreateTable(ctx context.Context, name string, fields []model.FieldDef) (string, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: name}},
		}},
	}
	if _, err := b.srv.Spreadsheets.BatchUpdate(b.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return "", classify(fmt.Errorf("failed to add sheet %s: %w", name, err))
	}

	header := []any{IDHeader}
	for _, f := range fields {
		header = append(header, f.Name)
	}
	_, err := b.srv.Spreadsheets.Values.Update(b.spreadsheetID, headerRange(name), &sheets.ValueRange{
		Values: [][]any{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", classify(fmt.Errorf("failed to write header of %s: %w", name, err))
	}

	b.mu.Lock()
	delete(b.headers, name)
	delete(b.rowIndex, name)
	b.mu.Unlock()
	return name, nil
}

// ListFields implements service.TableBackend.
func (b *Backend) ListFields(ctx context.Context, table string) ([]model.FieldDef, error) {
	header, err := b.header(ctx, table)
	if err != nil {
		return nil, err
	}
	var fields []model.FieldDef
	for _, name := range header {
		if name != "" && name != IDHeader {
			fields = append(fields, model.FieldDef{Name: name, Type: "text"})
		}
	}
	return fields, nil
}

// ListRows implements service.TableBackend. Page tokens are sheet row numbers.
func (b *Backend) ListRows(ctx context.Context, table, pageToken string, pageSize int) (model.Page, error) {
	header, err := b.header(ctx, table)
	if err != nil {
		return model.Page{}, err
	}

	first := 2
	if pageToken != "" {
		first, err = strconv.Atoi(pageToken)
		if err != nil || first < 2 {
			return model.Page{}, &common.RetryableError{Err: fmt.Errorf("invalid page token %q", pageToken), Retryable: false}
		}
	}
	if pageSize <= 0 {
		pageSize = 500
	}
	rowCount, err := b.rowCount(ctx, table)
	if err != nil {
		return model.Page{}, err
	}
	if first > rowCount {
		return model.Page{}, nil
	}
	last := min(first+pageSize-1, rowCount)

	resp, err := b.srv.Spreadsheets.Values.Get(b.spreadsheetID, rowsRange(table, first, last)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return model.Page{}, classify(fmt.Errorf("failed to read rows of %s: %w", table, err))
	}

	page := model.Page{}
	for i, cells := range resp.Values {
		if row, ok := rowFromCells(header, cells, first+i); ok {
			page.Rows = append(page.Rows, row)
		}
	}
	// Trailing blank rows are omitted from the response, so a short page
	// does not mean the sheet ended.
	if last < rowCount {
		page.HasMore = true
		page.NextToken = strconv.Itoa(last + 1)
	}
	return page, nil
}

// BatchCreate implements service.TableBackend by appending rows.
func (b *Backend) BatchCreate(ctx context.Context, table string, rows []model.Fields) ([]string, error) {
	header, err := b.header(ctx, table)
	if err != nil {
		return nil, err
	}
	if !hasIDColumn(header) {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%w: sheet %s has no %s column", common.ErrMissingField, table, IDHeader),
			Retryable: false,
		}
	}

	ids := make([]string, len(rows))
	values := make([][]any, len(rows))
	for i, fields := range rows {
		ids[i] = uuid.NewString()
		line, err := cellsFromFields(header, ids[i], fields)
		if err != nil {
			return nil, err
		}
		values[i] = line
	}

	_, err = b.srv.Spreadsheets.Values.Append(b.spreadsheetID, quoteTitle(table)+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return nil, classify(fmt.Errorf("failed to append rows to %s: %w", table, err))
	}

	b.mu.Lock()
	delete(b.rowIndex, table)
	b.mu.Unlock()
	return ids, nil
}

// BatchUpdate implements service.TableBackend with one values batch request.
func (b *Backend) BatchUpdate(ctx context.Context, table string, rows []model.Row) error {
	header, err := b.header(ctx, table)
	if err != nil {
		return err
	}

	var data []*sheets.ValueRange
	for _, row := range rows {
		rowNumber, err := b.locate(ctx, table, header, row.ID)
		if err != nil {
			return err
		}
		for name, value := range row.Fields {
			column := indexOf(header, name)
			if column < 0 {
				return &common.RetryableError{
					Err:       fmt.Errorf("%w: sheet %s has no column %q", common.ErrMissingField, table, name),
					Retryable: false,
				}
			}
			data = append(data, &sheets.ValueRange{
				Range:  cellRange(table, column, rowNumber),
				Values: [][]any{{value}},
			})
		}
	}
	if len(data) == 0 {
		return nil
	}

	_, err = b.srv.Spreadsheets.Values.BatchUpdate(b.spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return classify(fmt.Errorf("failed to update rows of %s: %w", table, err))
	}
	return nil
}

// CreateRow implements service.TableBackend.
func (b *Backend) CreateRow(ctx context.Context, table string, fields model.Fields) (string, error) {
	ids, err := b.BatchCreate(ctx, table, []model.Fields{fields})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// UpdateRow implements service.TableBackend.
func (b *Backend) UpdateRow(ctx context.Context, table string, row model.Row) error {
	return b.BatchUpdate(ctx, table, []model.Row{row})
}

func (b *Backend) header(ctx context.Context, table string) ([]string, error) {
	b.mu.Lock()
	cached, ok := b.headers[table]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}

	resp, err := b.srv.Spreadsheets.Values.Get(b.spreadsheetID, headerRange(table)).Context(ctx).Do()
	if err != nil {
		return nil, classify(fmt.Errorf("failed to read header of %s: %w", table, err))
	}
	var header []string
	if len(resp.Values) > 0 {
		for _, cell := range resp.Values[0] {
			header = append(header, strings.TrimSpace(fmt.Sprint(cell)))
		}
	}

	b.mu.Lock()
	b.headers[table] = header
	b.mu.Unlock()
	return header, nil
}

// rowCount returns the number of rows in the tab's grid, header included.
func (b *Backend) rowCount(ctx context.Context, table string) (int, error) {
	resp, err := b.srv.Spreadsheets.Get(b.spreadsheetID).
		Fields("sheets.properties(title,gridProperties.rowCount)").
		Context(ctx).Do()
	if err != nil {
		return 0, classify(fmt.Errorf("failed to read properties of %s: %w", table, err))
	}
	for _, sheet := range resp.Sheets {
		if p := sheet.Properties; p != nil && p.Title == table && p.GridProperties != nil {
			return int(p.GridProperties.RowCount), nil
		}
	}
	return 0, &common.RetryableError{Err: fmt.Errorf("sheet %s: %w", table, common.ErrNotFound), Retryable: false}
}

// locate returns the sheet row number holding id.
func (b *Backend) locate(ctx context.Context, table string, header []string, id string) (int, error) {
	if n, ok := strings.CutPrefix(id, rowIDPrefix); ok {
		if row, err := strconv.Atoi(n); err == nil && row >= 2 {
			return row, nil
		}
	}
	if !hasIDColumn(header) {
		return 0, notFound(table, id)
	}

	b.mu.Lock()
	index, ok := b.rowIndex[table]
	b.mu.Unlock()
	if row, hit := index[id]; ok && hit {
		return row, nil
	}

	resp, err := b.srv.Spreadsheets.Values.Get(b.spreadsheetID, idColumnRange(table)).Context(ctx).Do()
	if err != nil {
		return 0, classify(fmt.Errorf("failed to read ids of %s: %w", table, err))
	}
	index = make(map[string]int, len(resp.Values))
	for i, cells := range resp.Values {
		if i == 0 || len(cells) == 0 {
			continue
		}
		if v := strings.TrimSpace(fmt.Sprint(cells[0])); v != "" {
			index[v] = i + 1
		}
	}

	b.mu.Lock()
	b.rowIndex[table] = index
	b.mu.Unlock()

	if row, hit := index[id]; hit {
		return row, nil
	}
	return 0, notFound(table, id)
}

func rowFromCells(header []string, cells []any, rowNumber int) (model.Row, bool) {
	row := model.Row{Fields: model.Fields{}}
	empty := true
	for i, cell := range cells {
		if i >= len(header) || header[i] == "" {
			continue
		}
		if header[i] == IDHeader {
			row.ID = strings.TrimSpace(fmt.Sprint(cell))
			continue
		}
		if s, ok := cell.(string); ok && s == "" {
			continue
		}
		row.Fields[header[i]] = cell
		empty = false
	}
	if empty {
		return row, false
	}
	if row.ID == "" {
		row.ID = rowIDPrefix + strconv.Itoa(rowNumber)
	}
	return row, true
}

func cellsFromFields(header []string, id string, fields model.Fields) ([]any, error) {
	line := make([]any, len(header))
	for i := range line {
		line[i] = ""
	}
	for name, value := range fields {
		column := indexOf(header, name)
		if column < 0 {
			return nil, &common.RetryableError{
				Err:       fmt.Errorf("%w: no column %q", common.ErrMissingField, name),
				Retryable: false,
			}
		}
		if value == nil {
			value = ""
		}
		line[column] = value
	}
	line[indexOf(header, IDHeader)] = id
	return line, nil
}

func hasIDColumn(header []string) bool {
	return indexOf(header, IDHeader) >= 0
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func notFound(table, id string) error {
	return &common.RetryableError{Err: fmt.Errorf("row %s/%s: %w", table, id, common.ErrNotFound), Retryable: false}
}

// classify maps API errors onto retryable and permanent failures.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return &common.RetryableError{Err: err, Retryable: true}
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrRateLimit, err), Retryable: true}
	case apiErr.Code == http.StatusNotFound:
		return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrNotFound, err), Retryable: false}
	case apiErr.Code >= http.StatusInternalServerError:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}
