package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var errNoApp = errors.New("database connection required; check DATABASE_URL or CADENCE_SQLITE_PATH")

// RootCmd is the top-level cadence command.
var RootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Recurrence and replenishment scheduling engine",
	Long: `Cadence decides when the next occurrence of a recurring task is due,
materializes due occurrences, replenishes habit windows, and derives
streak and consistency analytics from completion history.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.AddCommand(scheduleCmd)
	RootCmd.AddCommand(processCmd)
	RootCmd.AddCommand(cancelCmd)
	RootCmd.AddCommand(replenishCmd)
	RootCmd.AddCommand(habitLogCmd)
	RootCmd.AddCommand(insightsCmd)
}

func requireApp() (*App, error) {
	a := GetApp()
	if a == nil {
		return nil, errNoApp
	}
	return a, nil
}
