package cli

import (
	"fmt"
	"time"

	recurrenceCommands "github.com/felixgeelhaar/cadence/internal/recurrence/application/commands"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Materialize due occurrences and replenish habit windows",
	Long: `Run one engine pass: turn every due scheduling ticket into a task and
open a new window for every eligible habit. The same pass the worker runs
on its tick.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}

		now := time.Now()

		pending, err := a.ProcessPendingHandler.Handle(cmd.Context(), recurrenceCommands.ProcessPendingCommand{Now: now})
		if err != nil {
			return fmt.Errorf("failed to process pending recurrences: %w", err)
		}

		replenished, err := a.Replenishment.ProcessReplenishments(cmd.Context(), now)
		if err != nil {
			return fmt.Errorf("failed to process replenishments: %w", err)
		}

		fmt.Printf("Engine pass complete\n")
		fmt.Printf("  Tasks materialized: %d (skipped %d)\n", pending.Materialized, pending.Skipped)
		fmt.Printf("  Habits replenished: %d of %d scanned\n", replenished.Replenished, replenished.Scanned)
		return nil
	},
}
