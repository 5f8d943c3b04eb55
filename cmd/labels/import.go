package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-labels-must-flow/internal/cli"
	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE.csv",
		Short: "Append ledger rows from a CSV export",
		Long: `Append the rows of a CSV file to the ledger table. The header row names
the columns; columns the ledger does not define are rejected so that a
mistyped header never silently drops data.

Runs as a preview unless --dry-run=false is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	addWriteFlags(cmd)

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := getWriteFlags(cmd)
	out := cmd.OutOrStdout()

	header, rows, err := readCSVRows(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fields, err := a.backend.ListFields(ctx, a.cfg.Tables.Source)
	if err != nil {
		return common.NewUserError(
			fmt.Sprintf("Ledger table %s is not available; run 'labels migrate' first", a.cfg.Tables.Source), err)
	}
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
	}
	for _, name := range header {
		if name != "" && !known[name] {
			return common.NewUserError(fmt.Sprintf("Column %q is not a ledger column", name), common.ErrMalformedInput)
		}
	}

	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d rows read from %s", len(rows), args[0])))
	if len(rows) == 0 {
		return nil
	}
	if flags.dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run: nothing was written. Re-run with --dry-run=false to import."))
		return nil
	}
	ok, err := confirm(cmd, flags, fmt.Sprintf("Append %d rows to %s?", len(rows), a.cfg.Tables.Source))
	if err != nil || !ok {
		return err
	}

	progress := cli.NewProgress(cmd.ErrOrStderr(), len(rows), "Import")
	summary := model.Summary{Total: len(rows)}
	for start := 0; start < len(rows); start += a.cfg.Store.BatchSize {
		chunk := rows[start:min(start+a.cfg.Store.BatchSize, len(rows))]
		res := a.tables.Create(ctx, a.cfg.Tables.Source, chunk)
		summary.Succeeded += res.Succeeded
		summary.Failed += len(res.Failed)
		for _, f := range res.Failed {
			common.LogError(f.Err, "Failed to import row", common.Fields{"row": start + f.Index + 1})
		}
		progress.Add(len(chunk))
		if ctx.Err() != nil {
			break
		}
	}
	progress.Finish()

	fmt.Fprintln(out, cli.RenderSummary("Import", summary))
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed to import", summary.Failed, summary.Total)
	}
	return nil
}

// readCSVRows reads a CSV file into field maps keyed by the header row.
// Empty cells are left out, as are rows with no cells at all.
func readCSVRows(path string) ([]string, []model.Fields, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []model.Fields
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		row := model.Fields{}
		for i, cell := range cells {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if cell = strings.TrimSpace(cell); cell != "" {
				row[header[i]] = cell
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return header, rows, nil
}
