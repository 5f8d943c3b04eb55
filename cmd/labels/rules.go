package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-labels-must-flow/internal/cli"
	"github.com/Veraticus/the-labels-must-flow/internal/engine"
	"github.com/Veraticus/the-labels-must-flow/internal/pattern"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Mine, check and apply keyword rules",
		Long: `Keyword rules map a note keyword and category to a purpose and
sub-category. They are mined from the labels you already confirmed, saved
to a CSV file you can hand-edit, and used to label new records.`,
	}

	cmd.AddCommand(rulesMineCmd())
	cmd.AddCommand(rulesValidateCmd())
	cmd.AddCommand(rulesApplyCmd())
	cmd.AddCommand(rulesFillCmd())

	return cmd
}

func rulesMineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine keyword rules from labeled ledger records",
		RunE:  runRulesMine,
	}

	cmd.Flags().StringP("output", "o", "", "Rules file to write (default: rules.path from config)")
	cmd.Flags().Int("min-count", 0, "Minimum supporting records per rule (default: rules.min_count)")
	cmd.Flags().Int("max-rules", 0, "Maximum number of rules kept (default: rules.max_rules)")
	cmd.Flags().Bool("dry-run", false, "Show the mined rules without saving them")
	cmd.Flags().Int("limit", cli.DefaultPreviewLimit, "Maximum rules shown")

	return cmd
}

func runRulesMine(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.cfg.MineOptions()
	if n, _ := cmd.Flags().GetInt("min-count"); n > 0 {
		opts.MinCount = n
	}
	if n, _ := cmd.Flags().GetInt("max-rules"); n > 0 {
		opts.MaxRules = n
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = a.cfg.Rules.Path
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	limit, _ := cmd.Flags().GetInt("limit")

	rules, summary, err := a.engine.MineRules(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := cli.RenderRules(out, rules, limit); err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d rules mined from %d records", len(rules), summary.Succeeded)))
	if dryRun {
		return nil
	}

	if err := pattern.SaveRulesFile(output, rules); err != nil {
		return err
	}
	slog.Info("Saved rules", "path", output, "count", len(rules))
	fmt.Fprintln(out, cli.FormatSuccess("Rules saved to "+output))
	return nil
}

func rulesValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compare ledger labels with rule predictions and export an audit report",
		Long: `Check every expense record against the rules and write the records where
the rule disagrees with the current labels to an audit CSV. Set the action
column of a row to UPDATE to accept the prediction, then run
'labels rules apply' on the file.`,
		RunE: runRulesValidate,
	}

	cmd.Flags().StringP("output", "o", "audit.csv", "Audit report to write")
	cmd.Flags().Bool("all", false, "Include matching records in the report")
	cmd.Flags().Int("max-records", 0, "Check at most this many records (0 for all)")

	return cmd
}

func runRulesValidate(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
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

	all, _ := cmd.Flags().GetBool("all")
	maxRecords, _ := cmd.Flags().GetInt("max-records")
	output, _ := cmd.Flags().GetString("output")

	rows, counts := engine.BuildAudit(records, matcher, engine.AuditOptions{All: all, MaxRecords: maxRecords})

	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}
	out := cmd.OutOrStdout()
	if err := cli.RenderCounts(out, "Rule check", byStatus); err != nil {
		return err
	}

	if err := engine.SaveAuditFile(output, rows); err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%d rows written to %s", len(rows), output)))
	return nil
}

func rulesApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply AUDIT.csv",
		Short: "Write the predictions of audit rows marked UPDATE to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesApply,
	}

	addWriteFlags(cmd)

	return cmd
}

func runRulesApply(cmd *cobra.Command, args []string) error {
	rows, err := engine.LoadAuditFile(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	plan := engine.LabelPlan(a.engine.Schema(), engine.AuditUpdates(rows))
	return applyPlan(cmd, a, plan, getWriteFlags(cmd), "Audit apply")
}

func rulesFillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill empty purpose and sub-category fields from rules and the classifier",
		Long: `Predict purpose and sub-category for expense records that are missing
either. Rules are tried first; the classifier, trained on the labeled
records, fills whatever the rules leave empty.`,
		RunE: runRulesFill,
	}

	addWriteFlags(cmd)
	cmd.Flags().Bool("overwrite", false, "Replace existing values instead of only filling empty ones")
	cmd.Flags().Int("max-fill", 0, "Consider at most this many records (0 for all)")

	return cmd
}

func runRulesFill(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.loadRecords(cmd)
	if err != nil {
		return err
	}
	predictor, _, err := a.predictor(records)
	if err != nil {
		return err
	}

	overwrite, _ := cmd.Flags().GetBool("overwrite")
	maxFill, _ := cmd.Flags().GetInt("max-fill")
	plan := a.engine.PlanFill(records, predictor, engine.FillOptions{Overwrite: overwrite, MaxFill: maxFill})

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary("Fill plan", plan.Summary))
	return applyPlan(cmd, a, plan, getWriteFlags(cmd), "Fill")
}
