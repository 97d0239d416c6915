package cli

import (
	"fmt"

	"github.com/felixgeelhaar/cadence/internal/insights/application/queries"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var insightsCmd = &cobra.Command{
	Use:   "insights [habit-id]",
	Short: "Show streak and consistency analytics for a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}

		habitID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid habit ID: %w", err)
		}

		insights, err := a.HabitInsightsHandler.Handle(cmd.Context(), queries.HabitInsightsQuery{HabitID: habitID})
		if err != nil {
			return fmt.Errorf("failed to compute insights: %w", err)
		}

		fmt.Printf("%s\n", insights.Name)
		fmt.Printf("  Current streak:    %d\n", insights.CurrentStreak)
		fmt.Printf("  Longest streak:    %d\n", insights.LongestStreak)
		fmt.Printf("  Consistency:       %.2f\n", insights.ConsistencyScore)
		fmt.Printf("  Momentum:          %s\n", insights.Momentum)
		fmt.Printf("  Last 7 days:       %d completions\n", insights.CompletionsWeek)
		fmt.Printf("  Total completions: %d\n", insights.TotalCompletions)
		fmt.Printf("  Next milestone:    %d (%.0f%%)\n", insights.NextMilestone, insights.MilestoneProgress*100)
		return nil
	},
}
