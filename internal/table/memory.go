package table

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// MemoryBackend is an in-process TableBackend. Values are stored as given, so
// tests can feed it the raw shapes a remote store would return.
type MemoryBackend struct {
	// BatchErr, when set, fails every batch call.
	BatchErr error
	// RowErr, when set, is consulted before each single-row write.
	RowErr func(table string, fields model.Fields) error

	tables map[string]*memoryTable
	mu     sync.Mutex
}

type memoryTable struct {
	rows   map[string]model.Fields
	name   string
	fields []model.FieldDef
	order  []string
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[string]*memoryTable)}
}

// AddTable registers a table with the given columns.
func (m *MemoryBackend) AddTable(name string, fields []model.FieldDef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = &memoryTable{fields: fields, rows: make(map[string]model.Fields)}
}

// Get returns a copy of a stored row.
func (m *MemoryBackend) Get(table, id string) (model.Fields, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return nil, false
	}
	f, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	return maps.Clone(f), true
}

// CreateTable implements service.TableBackend.
func (m *MemoryBackend) CreateTable(_ context.Context, name string, fields []model.FieldDef) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "tbl_" + uuid.NewString()
	m.tables[id] = &memoryTable{name: name, fields: fields, rows: make(map[string]model.Fields)}
	return id, nil
}

// ListFields implements service.TableBackend.
func (m *MemoryBackend) ListFields(_ context.Context, table string) ([]model.FieldDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	return append([]model.FieldDef(nil), t.fields...), nil
}

// ListRows implements service.TableBackend. Page tokens are row offsets.
func (m *MemoryBackend) ListRows(_ context.Context, table, pageToken string, pageSize int) (model.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(table)
	if err != nil {
		return model.Page{}, err
	}

	offset := 0
	if pageToken != "" {
		offset, err = strconv.Atoi(pageToken)
		if err != nil || offset < 0 {
			return model.Page{}, &common.RetryableError{Err: fmt.Errorf("invalid page token %q", pageToken), Retryable: false}
		}
	}
	if pageSize <= 0 {
		pageSize = len(t.order)
	}

	end := min(offset+pageSize, len(t.order))
	page := model.Page{}
	for _, id := range t.order[min(offset, end):end] {
		page.Rows = append(page.Rows, model.Row{ID: id, Fields: maps.Clone(t.rows[id])})
	}
	if end < len(t.order) {
		page.HasMore = true
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

// BatchCreate implements service.TableBackend.
func (m *MemoryBackend) BatchCreate(_ context.Context, table string, rows []model.Fields) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BatchErr != nil {
		return nil, m.BatchErr
	}
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, f := range rows {
		ids = append(ids, t.insert(f))
	}
	return ids, nil
}

// BatchUpdate implements service.TableBackend.
func (m *MemoryBackend) BatchUpdate(_ context.Context, table string, rows []model.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BatchErr != nil {
		return m.BatchErr
	}
	t, err := m.table(table)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if _, ok := t.rows[r.ID]; !ok {
			return &common.RetryableError{Err: fmt.Errorf("row %s: %w", r.ID, common.ErrNotFound), Retryable: false}
		}
	}
	for _, r := range rows {
		maps.Copy(t.rows[r.ID], r.Fields)
	}
	return nil
}

// CreateRow implements service.TableBackend.
func (m *MemoryBackend) CreateRow(_ context.Context, table string, fields model.Fields) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RowErr != nil {
		if err := m.RowErr(table, fields); err != nil {
			return "", err
		}
	}
	t, err := m.table(table)
	if err != nil {
		return "", err
	}
	return t.insert(fields), nil
}

// UpdateRow implements service.TableBackend.
func (m *MemoryBackend) UpdateRow(_ context.Context, table string, row model.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RowErr != nil {
		if err := m.RowErr(table, row.Fields); err != nil {
			return err
		}
	}
	t, err := m.table(table)
	if err != nil {
		return err
	}
	existing, ok := t.rows[row.ID]
	if !ok {
		return &common.RetryableError{Err: fmt.Errorf("row %s: %w", row.ID, common.ErrNotFound), Retryable: false}
	}
	maps.Copy(existing, row.Fields)
	return nil
}

func (m *MemoryBackend) table(name string) (*memoryTable, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, &common.RetryableError{Err: fmt.Errorf("table %s: %w", name, common.ErrNotFound), Retryable: false}
	}
	return t, nil
}

func (t *memoryTable) insert(fields model.Fields) string {
	id := "rec_" + uuid.NewString()
	t.rows[id] = maps.Clone(fields)
	if t.rows[id] == nil {
		t.rows[id] = model.Fields{}
	}
	t.order = append(t.order, id)
	return id
}
