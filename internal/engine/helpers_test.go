package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/service"
	"github.com/Veraticus/the-labels-must-flow/internal/table"
)

const ledgerTable = "ledger"

type fixedStrategy model.Prediction

func (f fixedStrategy) Predict(_, _ string) model.Prediction {
	return model.Prediction(f)
}

func newTestEngine(t *testing.T, rows []model.Fields) (*Engine, *table.MemoryBackend, []string) {
	t.Helper()
	schema := table.DefaultSourceSchema()

	backend := table.NewMemoryBackend()
	defs := make([]model.FieldDef, 0, 8)
	for _, name := range append(schema.Required(), schema.Counterparty) {
		defs = append(defs, model.FieldDef{Name: name})
	}
	backend.AddTable(ledgerTable, defs)

	ids, err := backend.BatchCreate(context.Background(), ledgerTable, rows)
	require.NoError(t, err)

	fast := service.RetryOptions{MaxAttempts: 1, InitialDelay: time.Millisecond}
	client := table.NewClient(backend, table.Options{Retry: fast, RowRetry: fast, PageSize: 2})
	return New(client, Config{SourceTable: ledgerTable, Schema: schema}), backend, ids
}

func ledgerRow(note, category, purpose, subcat string) model.Fields {
	s := table.DefaultSourceSchema()
	return model.Fields{
		s.Note:      note,
		s.Category:  category,
		s.Purpose:   purpose,
		s.Subcat:    subcat,
		s.Direction: "支出",
		s.Amount:    float64(10),
		s.Date:      float64(1700000000000),
	}
}
