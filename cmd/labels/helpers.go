package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-labels-must-flow/internal/bayes"
	"github.com/Veraticus/the-labels-must-flow/internal/categorize"
	"github.com/Veraticus/the-labels-must-flow/internal/cli"
	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/config"
	"github.com/Veraticus/the-labels-must-flow/internal/corrections"
	"github.com/Veraticus/the-labels-must-flow/internal/engine"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/pattern"
	"github.com/Veraticus/the-labels-must-flow/internal/review"
	"github.com/Veraticus/the-labels-must-flow/internal/service"
	"github.com/Veraticus/the-labels-must-flow/internal/sheets"
	"github.com/Veraticus/the-labels-must-flow/internal/storage"
	"github.com/Veraticus/the-labels-must-flow/internal/table"
)

// app bundles everything a command needs to talk to the ledger.
type app struct {
	cfg     *config.Engine
	backend service.TableBackend
	db      *storage.SQLiteStorage
	tables  *table.Client
	engine  *engine.Engine
}

// openApp loads configuration and connects to the configured backend.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadEngineConfig(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Configuration is invalid", err)
	}

	a := &app{cfg: cfg}
	switch cfg.Backend {
	case config.BackendSheets:
		sheetsCfg, err := config.LoadSheetsConfig(viper.GetViper())
		if err != nil {
			return nil, common.NewUserError("Google Sheets is not configured", err)
		}
		backend, err := sheets.NewBackend(ctx, *sheetsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Google Sheets: %w", err)
		}
		a.backend = backend
	default:
		db, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		a.backend = db
	}

	a.tables = table.NewClient(a.backend, cfg.TableOptions())
	a.engine = engine.New(a.tables, engine.Config{SourceTable: cfg.Tables.Source, Schema: cfg.SourceSchema})
	slog.Debug("Opened ledger", "backend", cfg.Backend, "table", cfg.Tables.Source)
	return a, nil
}

// database opens and migrates the SQLite database once.
func (a *app) database(ctx context.Context) (*storage.SQLiteStorage, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := storage.NewSQLiteStorage(a.cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

// correctionStore returns the configured correction store.
func (a *app) correctionStore(ctx context.Context) (service.CorrectionStore, error) {
	if a.cfg.Corrections.Store == config.CorrectionsSQLite {
		db, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		return db.Corrections(), nil
	}
	return corrections.NewFileStore(a.cfg.Corrections.Path), nil
}

// categorizer builds the baseline categorizer, training its counterparty
// model from the ledger records.
func (a *app) categorizer(store service.CorrectionStore, records []model.TransactionRecord) *categorize.Categorizer {
	opts := a.cfg.CategorizerOptions()
	opts.Model = categorize.TrainCounterpartyModel(records, a.cfg.Corrections.Skip)
	return categorize.New(store, opts)
}

// matcher loads the rules file.
func (a *app) matcher() (*pattern.MatcherImpl, error) {
	rules, err := pattern.LoadRulesFile(a.cfg.Rules.Path)
	if err != nil {
		return nil, common.NewUserError(
			fmt.Sprintf("Could not load rules from %s; run 'labels rules mine' first", a.cfg.Rules.Path), err)
	}
	return pattern.NewMatcher(rules), nil
}

// predictor chains the mined rules with a classifier trained on records.
func (a *app) predictor(records []model.TransactionRecord) (*engine.Predictor, *bayes.Classifier, error) {
	m, err := a.matcher()
	if err != nil {
		return nil, nil, err
	}
	classifier := bayes.TrainClassifier(records, a.cfg.Classifier.Threshold)
	return engine.NewPredictor(m, classifier), classifier, nil
}

func (a *app) workflow(m pattern.Matcher) *review.Workflow {
	return review.NewWorkflow(a.tables, m, review.Config{
		SourceTable:  a.cfg.Tables.Source,
		ReviewTable:  a.cfg.Tables.Review,
		SourceSchema: a.cfg.SourceSchema,
		ReviewSchema: a.cfg.ReviewSchema,
	})
}

// ensureTable creates a table unless it can already be listed.
func (a *app) ensureTable(ctx context.Context, name string, fields []model.FieldDef) (bool, error) {
	if name == "" {
		return false, nil
	}
	_, listErr := a.backend.ListFields(ctx, name)
	if listErr == nil && a.cfg.Backend != config.BackendSQLite {
		return false, nil
	}
	if _, err := a.tables.CreateTable(ctx, name, fields); err != nil {
		return false, errors.Join(err, listErr)
	}
	return listErr != nil, nil
}

// loadRecords reads the ledger and prints its load summary.
func (a *app) loadRecords(cmd *cobra.Command) ([]model.TransactionRecord, error) {
	loaded, err := a.engine.LoadRecords(cmd.Context())
	if err != nil {
		return nil, err
	}
	if loaded.Summary.Skipped > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(
			fmt.Sprintf("%d of %d ledger rows were malformed and skipped", loaded.Summary.Skipped, loaded.Summary.Total)))
	}
	return loaded.Records, nil
}

// addWriteFlags registers the flags shared by every command that writes.
func addWriteFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", true, "Preview changes without writing them")
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().Int("limit", cli.DefaultPreviewLimit, "Maximum rows shown in the preview")
}

type writeFlags struct {
	dryRun bool
	yes    bool
	limit  int
}

func getWriteFlags(cmd *cobra.Command) writeFlags {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")
	limit, _ := cmd.Flags().GetInt("limit")
	return writeFlags{dryRun: dryRun, yes: yes, limit: limit}
}

// confirm asks before a real write unless --yes was given.
func confirm(cmd *cobra.Command, flags writeFlags, question string) (bool, error) {
	if flags.yes {
		return true, nil
	}
	prompter := cli.NewCLIPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	ok, err := prompter.Confirm(cmd.Context(), question)
	if errors.Is(err, cli.ErrInputTerminated) {
		return false, nil
	}
	return ok, err
}

// applyPlan previews plan and, when this is a real run and the user agrees,
// writes it to the ledger.
func applyPlan(cmd *cobra.Command, a *app, plan model.WritePlan, flags writeFlags, title string) error {
	out := cmd.OutOrStdout()
	if err := cli.RenderPlan(out, plan, flags.limit); err != nil {
		return err
	}
	if plan.Empty() {
		return nil
	}
	if flags.dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run: nothing was written. Re-run with --dry-run=false to apply."))
		return nil
	}

	ok, err := confirm(cmd, flags, fmt.Sprintf("Write %d rows to %s?", len(plan.Updates), a.cfg.Tables.Source))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, cli.FormatWarning("Cancelled."))
		return nil
	}

	progress := cli.NewProgress(cmd.ErrOrStderr(), len(plan.Updates), title)
	summary := a.engine.Apply(cmd.Context(), plan, progress.Add)
	progress.Finish()

	fmt.Fprintln(out, cli.RenderSummary(title, summary))
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed to write", summary.Failed, summary.Total)
	}
	return nil
}

func joinLabels(purpose, subcat string) string {
	if purpose == "" && subcat == "" {
		return "-"
	}
	return strings.TrimSpace(purpose + " / " + subcat)
}
