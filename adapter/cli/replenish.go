package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var replenishCmd = &cobra.Command{
	Use:   "replenish [habit-id]",
	Short: "Replenish a habit window immediately",
	Long: `Open a new due window for one habit right now, bypassing cutoff and
gating checks. Administrative path; the normal batch runs via 'process'
or the worker tick.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}

		habitID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid habit ID: %w", err)
		}

		if err := a.Replenishment.ReplenishNow(cmd.Context(), habitID); err != nil {
			return fmt.Errorf("failed to replenish: %w", err)
		}

		fmt.Println("Habit replenished")
		return nil
	},
}
