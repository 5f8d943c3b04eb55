package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-labels-must-flow/internal/cli"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/review"
	"github.com/Veraticus/the-labels-must-flow/internal/tui"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Stage label suggestions for human review and sync the decisions back",
		Long: `The review workflow:

  labels review push   stage rule suggestions into the review table
  labels review edit   confirm, edit or ignore pending items
  labels review sync   write confirmed items to the ledger

Items can also be decided directly in the review table by setting the
final values and the status column.`,
	}

	cmd.AddCommand(reviewPushCmd())
	cmd.AddCommand(reviewSyncCmd())
	cmd.AddCommand(reviewEditCmd())

	return cmd
}

func reviewPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Stage expense records and their rule suggestions into the review table",
		RunE:  runReviewPush,
	}

	addWriteFlags(cmd)
	cmd.Flags().Bool("include-staged", false, "Stage records again even if they have an open review item")

	return cmd
}

func runReviewPush(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := getWriteFlags(cmd)
	includeStaged, _ := cmd.Flags().GetBool("include-staged")
	out := cmd.OutOrStdout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	matcher, err := a.matcher()
	if err != nil {
		return err
	}
	records, err := a.loadRecords(cmd)
	if err != nil {
		return err
	}
	workflow := a.workflow(matcher)

	preview, err := workflow.Push(ctx, records, review.PushOptions{DryRun: true, IncludeStaged: includeStaged})
	if err != nil {
		return err
	}
	if err := cli.RenderCounts(out, "Rule check", map[string]int{
		string(model.StatusMatch):    preview.Stats.Match,
		string(model.StatusMismatch): preview.Stats.Mismatch,
		string(model.StatusNoRule):   preview.Stats.NoRule,
	}); err != nil {
		return err
	}
	if err := cli.RenderReviewItems(out, preview.Items, flags.limit); err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d new items, %d already open", len(preview.Items), preview.Summary.Skipped)))
	if len(preview.Items) == 0 {
		return nil
	}
	if flags.dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run: nothing was written. Re-run with --dry-run=false to stage."))
		return nil
	}
	ok, err := confirm(cmd, flags, fmt.Sprintf("Stage %d items into %s?", len(preview.Items), a.cfg.Tables.Review))
	if err != nil || !ok {
		return err
	}

	result, err := workflow.Push(ctx, records, review.PushOptions{IncludeStaged: includeStaged})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cli.RenderSummary("Review push", result.Summary))
	if result.Summary.Failed > 0 {
		return fmt.Errorf("%d items failed to stage", result.Summary.Failed)
	}
	return nil
}

func reviewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Write confirmed review decisions to the ledger",
		RunE:  runReviewSync,
	}

	addWriteFlags(cmd)

	return cmd
}

func runReviewSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := getWriteFlags(cmd)
	out := cmd.OutOrStdout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	workflow := a.workflow(nil)
	preview, err := workflow.Sync(ctx, review.SyncOptions{DryRun: true})
	if err != nil {
		return err
	}
	if err := cli.RenderPlan(out, preview.Plan, flags.limit); err != nil {
		return err
	}
	if preview.Summary.Skipped > 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d confirmed items have no final values", preview.Summary.Skipped)))
	}
	if preview.Plan.Empty() {
		return nil
	}
	if flags.dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run: nothing was written. Re-run with --dry-run=false to sync."))
		return nil
	}
	ok, err := confirm(cmd, flags, fmt.Sprintf("Write %d confirmed items to %s?", len(preview.Plan.Updates), a.cfg.Tables.Source))
	if err != nil || !ok {
		return err
	}

	result, err := workflow.Sync(ctx, review.SyncOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cli.RenderSummary("Review sync", result.Summary))
	if result.Summary.Failed > 0 {
		return fmt.Errorf("%d items failed to sync; they stay confirmed for the next run", result.Summary.Failed)
	}
	return nil
}

func reviewEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Decide pending review items in an interactive editor",
		RunE:  runReviewEdit,
	}
}

func runReviewEdit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	workflow := a.workflow(nil)
	pending, err := workflow.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No pending review items."))
		return nil
	}

	decide := func(ctx context.Context, item model.ReviewItem, status model.ReviewStatus, purpose, subcat string) (model.ReviewItem, error) {
		return workflow.Decide(ctx, item, review.Decision{Status: status, FinalPurpose: purpose, FinalSubcat: subcat})
	}
	stats, err := tui.Run(ctx, pending, decide)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
		"%d confirmed, %d ignored. Run 'labels review sync' to write confirmed items.", stats.Confirmed, stats.Ignored)))
	if stats.Failed > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("%d decisions failed to save", stats.Failed)))
	}
	return nil
}
