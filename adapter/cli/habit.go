package cli

import (
	"fmt"

	habitCommands "github.com/felixgeelhaar/cadence/internal/habits/application/commands"
	habitsDomain "github.com/felixgeelhaar/cadence/internal/habits/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	habitLogNote string
	habitLogMood string
	habitLogSkip bool
)

var habitLogCmd = &cobra.Command{
	Use:   "log [habit-id]",
	Short: "Log a habit completion or skip",
	Long: `Resolve the habit's current window. A completion extends the streak;
an explicit skip keeps the window resolved without counting.

Examples:
  cadence log abc123 --note "morning run done"
  cadence log abc123 --skip --note "travel day"`,
	Aliases: []string{"done"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}

		habitID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid habit ID: %w", err)
		}

		status := habitsDomain.LogStatusCompleted
		if habitLogSkip {
			status = habitsDomain.LogStatusSkipped
		}

		result, err := a.LogHabitHandler.Handle(cmd.Context(), habitCommands.LogHabitCommand{
			HabitID: habitID,
			UserID:  a.CurrentUserID,
			Status:  status,
			Note:    habitLogNote,
			Mood:    habitLogMood,
		})
		if err != nil {
			return fmt.Errorf("failed to log habit: %w", err)
		}

		if habitLogSkip {
			fmt.Println("Logged skip")
		} else {
			fmt.Printf("Logged completion\n")
			fmt.Printf("  Current streak: %d\n", result.CurrentStreak)
			fmt.Printf("  Longest streak: %d\n", result.LongestStreak)
		}
		return nil
	},
}

func init() {
	habitLogCmd.Flags().StringVarP(&habitLogNote, "note", "n", "", "note for this entry")
	habitLogCmd.Flags().StringVarP(&habitLogMood, "mood", "m", "", "mood for this entry")
	habitLogCmd.Flags().BoolVar(&habitLogSkip, "skip", false, "log an explicit skip instead of a completion")
}
