package cli

import (
	"fmt"

	"github.com/felixgeelhaar/cadence/internal/recurrence/application/commands"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule [task-id]",
	Short: "Schedule the next occurrence of a recurring task",
	Long: `Evaluate the task's recurrence rule and stage a durable ticket for the
next occurrence.

Examples:
  cadence schedule 7c9e6679-7425-40de-944b-e07fc1f90ae7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}

		taskID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid task ID: %w", err)
		}

		result, err := a.SchedulePendingHandler.Handle(cmd.Context(), commands.SchedulePendingCommand{
			TaskID: taskID,
			UserID: a.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to schedule: %w", err)
		}

		fmt.Printf("Scheduled next occurrence\n")
		fmt.Printf("  Ticket:     %s\n", result.PendingID)
		fmt.Printf("  Due:        %s\n", result.ScheduledDate)
		fmt.Printf("  Occurrence: #%d\n", result.OccurrenceIndex)
		return nil
	},
}
