package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-labels-must-flow/internal/bayes"
	"github.com/Veraticus/the-labels-must-flow/internal/cli"
	"github.com/Veraticus/the-labels-must-flow/internal/counterparty"
	"github.com/Veraticus/the-labels-must-flow/internal/service"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify NOTE",
		Short: "Show how a note would be labeled and categorized",
		Long: `Run a single note through the rules, the classifier and the baseline
categorizer and show what each of them decides. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().StringP("category", "c", "", "Category of the transaction")
	cmd.Flags().String("counterparty", "", "Counterparty (default: extracted from the note)")
	cmd.Flags().String("source", "unknown", "Source type used for the category mapping")
	cmd.Flags().Bool("income", false, "Treat the transaction as income")
	cmd.Flags().Int("top", 0, "Classifier candidates shown per field (default: classifier.top_k)")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	note := strings.TrimSpace(args[0])
	category, _ := cmd.Flags().GetString("category")
	party, _ := cmd.Flags().GetString("counterparty")
	source, _ := cmd.Flags().GetString("source")
	income, _ := cmd.Flags().GetBool("income")
	top, _ := cmd.Flags().GetInt("top")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if top <= 0 {
		top = a.cfg.Classifier.TopK
	}

	records, err := a.loadRecords(cmd)
	if err != nil {
		return err
	}
	predictor, classifier, err := a.predictor(records)
	if err != nil {
		return err
	}

	var b strings.Builder
	pred := predictor.Predict(note, category)
	fmt.Fprintf(&b, "%s Labels: %s\n", cli.LabelIcon, joinLabels(pred.Purpose, pred.Subcat))
	fmt.Fprintf(&b, "  Source: %s\n", pred.Source)
	if pred.Rule != nil {
		fmt.Fprintf(&b, "  Rule:   %s (%s, %d records)\n", pred.Rule.Keyword, pred.Rule.ConfidencePercent(), pred.Rule.Count)
	}

	for _, field := range []bayes.Field{bayes.FieldPurpose, bayes.FieldSubcat} {
		fmt.Fprintf(&b, "\nClassifier %s:\n", field)
		candidates := classifier.TopK(field, note, category, top)
		if len(candidates) == 0 {
			b.WriteString("  (no known words)\n")
		}
		for _, c := range candidates {
			fmt.Fprintf(&b, "  %-12s %5.1f%%\n", c.Label, c.Probability*100)
		}
	}

	if party == "" {
		party, _ = counterparty.Extract(note, category)
	}
	if party != "" {
		store, err := a.correctionStore(ctx)
		if err != nil {
			return err
		}
		decision, err := a.categorizer(store, records).Explain(ctx, service.CategoryQuery{
			SourceType:   source,
			SeedCategory: category,
			Counterparty: party,
			IsIncome:     income,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "\nCounterparty %s %s %s (%s)\n", party, cli.ArrowIcon, decision.Category, decision.Stage)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(note, strings.TrimRight(b.String(), "\n")))
	return nil
}
