package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/pattern"
)

// AuditColumns is the header of the validation report.
var AuditColumns = []string{
	"record_id", "date", "amount", "category", "note",
	"current_purpose", "current_subcat",
	"predicted_purpose", "predicted_subcat",
	"status", "action",
}

// ActionUpdate marks an audit row whose prediction should be written back.
const ActionUpdate = "UPDATE"

// AuditOptions controls BuildAudit.
type AuditOptions struct {
	// All includes matching rows; by default only mismatches are reported.
	All bool
	// MaxRecords caps how many expense records are checked. Zero means no cap.
	MaxRecords int
}

// BuildAudit compares every expense record that has a note and category with
// the rule prediction.
func BuildAudit(records []model.TransactionRecord, matcher pattern.Matcher, opts AuditOptions) ([]model.AuditRow, map[model.MatchStatus]int) {
	counts := map[model.MatchStatus]int{}
	var rows []model.AuditRow
	checked := 0

	for _, rec := range records {
		if opts.MaxRecords > 0 && checked >= opts.MaxRecords {
			break
		}
		if !rec.IsExpense() || strings.TrimSpace(rec.Note) == "" || strings.TrimSpace(rec.Category) == "" {
			continue
		}
		checked++

		rule, _ := matcher.Match(rec.Note, rec.Category)
		status := model.CompareLabels(rec.Purpose, rec.Subcat, rule.Purpose, rule.Subcat)
		counts[status]++

		if !opts.All && status != model.StatusMismatch {
			continue
		}
		rows = append(rows, model.AuditRow{
			RecordID:         rec.ID,
			Date:             rec.Date.Local().Format(time.DateOnly),
			Amount:           rec.Amount.String(),
			Category:         rec.Category,
			Note:             rec.Note,
			CurrentPurpose:   rec.Purpose,
			CurrentSubcat:    rec.Subcat,
			PredictedPurpose: rule.Purpose,
			PredictedSubcat:  rule.Subcat,
			Status:           status,
		})
	}
	return rows, counts
}

// WriteAudit writes the report as CSV with a UTF-8 BOM.
func WriteAudit(w io.Writer, rows []model.AuditRow) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("failed to write audit: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(AuditColumns); err != nil {
		return fmt.Errorf("failed to write audit header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.RecordID, r.Date, r.Amount, r.Category, r.Note,
			r.CurrentPurpose, r.CurrentSubcat,
			r.PredictedPurpose, r.PredictedSubcat,
			string(r.Status), r.Action,
		}); err != nil {
			return fmt.Errorf("failed to write audit row %s: %w", r.RecordID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadAudit parses a report, locating columns by header name.
func ReadAudit(r io.Reader) ([]model.AuditRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: audit header: %w", common.ErrMalformedInput, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["record_id"]; !ok {
		return nil, fmt.Errorf("%w: audit lacks record_id column", common.ErrMalformedInput)
	}
	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []model.AuditRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: audit: %w", common.ErrMalformedInput, err)
		}
		rows = append(rows, model.AuditRow{
			RecordID:         get(rec, "record_id"),
			Date:             get(rec, "date"),
			Amount:           get(rec, "amount"),
			Category:         get(rec, "category"),
			Note:             get(rec, "note"),
			CurrentPurpose:   get(rec, "current_purpose"),
			CurrentSubcat:    get(rec, "current_subcat"),
			PredictedPurpose: get(rec, "predicted_purpose"),
			PredictedSubcat:  get(rec, "predicted_subcat"),
			Status:           model.MatchStatus(get(rec, "status")),
			Action:           get(rec, "action"),
		})
	}
	return rows, nil
}

// AuditUpdates selects rows marked UPDATE (any case) and returns the label
// writes they request. Empty predicted values are not written.
func AuditUpdates(rows []model.AuditRow) []LabelUpdate {
	var updates []LabelUpdate
	for _, r := range rows {
		if !strings.EqualFold(r.Action, ActionUpdate) || r.RecordID == "" {
			continue
		}
		updates = append(updates, LabelUpdate{
			RecordID:   r.RecordID,
			Note:       r.Note,
			Category:   r.Category,
			OldPurpose: r.CurrentPurpose,
			OldSubcat:  r.CurrentSubcat,
			Purpose:    r.PredictedPurpose,
			Subcat:     r.PredictedSubcat,
		})
	}
	return updates
}

// SaveAuditFile writes the report to path.
func SaveAuditFile(path string, rows []model.AuditRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return fmt.Errorf("failed to create audit file: %w", err)
	}
	if err := WriteAudit(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadAuditFile reads the report at path.
func LoadAuditFile(path string) ([]model.AuditRow, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadAudit(f)
}
