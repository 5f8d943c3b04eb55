package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-labels-must-flow/internal/cli"
	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/counterparty"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

func correctionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "Inspect and edit learned counterparty corrections",
	}

	cmd.AddCommand(correctionsListCmd())
	cmd.AddCommand(correctionsSetCmd())

	return cmd
}

func correctionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every correction",
		RunE:  runCorrectionsList,
	}

	cmd.Flags().Int("limit", 1000, "Maximum corrections shown")

	return cmd
}

func runCorrectionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.correctionStore(ctx)
	if err != nil {
		return err
	}
	all, err := store.All(ctx)
	if err != nil {
		return err
	}

	entries := make([]model.CorrectionEntry, 0, len(all))
	for cp, category := range all {
		entries = append(entries, model.CorrectionEntry{Counterparty: cp, Category: category})
	}
	limit, _ := cmd.Flags().GetInt("limit")
	return cli.RenderCorrections(cmd.OutOrStdout(), entries, limit)
}

func correctionsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set COUNTERPARTY CATEGORY",
		Short: "Pin a counterparty to a category",
		Args:  cobra.ExactArgs(2),
		RunE:  runCorrectionsSet,
	}
}

func runCorrectionsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key := counterparty.Clean(args[0])
	category := strings.TrimSpace(args[1])
	if key == "" || category == "" {
		return common.NewUserError("Counterparty and category must not be empty", common.ErrMalformedInput)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.correctionStore(ctx)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, key, category); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s %s %s", key, cli.ArrowIcon, category)))
	return nil
}
