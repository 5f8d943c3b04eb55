package main

import (
	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Backfill empty counterparty fields from transaction notes",
		Long: `Recover the counterparty of every ledger record whose counterparty field
is empty by parsing its note, and write it back.

Runs as a preview unless --dry-run=false is given.`,
		RunE: runExtract,
	}

	addWriteFlags(cmd)

	return cmd
}

func runExtract(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.loadRecords(cmd)
	if err != nil {
		return err
	}

	plan := a.engine.PlanBackfill(records)
	return applyPlan(cmd, a, plan, getWriteFlags(cmd), "Counterparty backfill")
}
