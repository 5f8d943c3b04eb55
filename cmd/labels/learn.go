package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-labels-must-flow/internal/cli"
	"github.com/Veraticus/the-labels-must-flow/internal/corrections"
)

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn counterparty corrections from confirmed ledger categories",
		Long: `Walk the ledger and compare each record's category with what the
baseline categorizer would guess from its counterparty. Every disagreement
becomes a correction, so the next guess for that counterparty is right.

Runs as a preview unless --dry-run=false is given.`,
		RunE: runLearn,
	}

	addWriteFlags(cmd)

	return cmd
}

func runLearn(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := getWriteFlags(cmd)
	out := cmd.OutOrStdout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.loadRecords(cmd)
	if err != nil {
		return err
	}
	store, err := a.correctionStore(ctx)
	if err != nil {
		return err
	}
	learner := corrections.NewLearner(store, a.categorizer(store, records), a.cfg.Corrections.Skip)

	preview, err := learner.LearnAll(ctx, records, true)
	if err != nil {
		return err
	}
	if err := cli.RenderCorrections(out, preview.Learned, flags.limit); err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d new corrections, %d already agreed", len(preview.Learned), preview.Agreed)))
	if len(preview.Learned) == 0 {
		return nil
	}
	if flags.dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run: nothing was written. Re-run with --dry-run=false to save."))
		return nil
	}
	ok, err := confirm(cmd, flags, fmt.Sprintf("Save %d corrections?", len(preview.Learned)))
	if err != nil || !ok {
		return err
	}

	result, err := learner.LearnAll(ctx, records, false)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cli.RenderSummary("Learn", result.Summary))
	if result.Summary.Failed > 0 {
		return fmt.Errorf("%d records failed to learn", result.Summary.Failed)
	}
	return nil
}
