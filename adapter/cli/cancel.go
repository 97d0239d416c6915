package cli

import (
	"fmt"

	"github.com/felixgeelhaar/cadence/internal/recurrence/application/commands"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var cancelAll bool

var cancelCmd = &cobra.Command{
	Use:   "cancel [source-task-id]",
	Short: "Cancel pending recurrences",
	Long: `Remove the scheduling ticket of a recurring series. Existing task
occurrences are untouched.

Examples:
  cadence cancel 7c9e6679-7425-40de-944b-e07fc1f90ae7
  cadence cancel --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}

		c := commands.CancelPendingCommand{All: cancelAll}
		if !cancelAll {
			if len(args) == 0 {
				return fmt.Errorf("source task ID required unless --all is set")
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task ID: %w", err)
			}
			c.SourceTaskID = id
		}

		if err := a.CancelPendingHandler.Handle(cmd.Context(), c); err != nil {
			return fmt.Errorf("failed to cancel: %w", err)
		}

		if cancelAll {
			fmt.Println("Cancelled all pending recurrences")
		} else {
			fmt.Println("Cancelled pending recurrence")
		}
		return nil
	},
}

func init() {
	cancelCmd.Flags().BoolVar(&cancelAll, "all", false, "cancel every pending recurrence")
}
