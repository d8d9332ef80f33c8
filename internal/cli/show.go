package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"arb-ranker/internal/app"
)

var (
	showSymbol string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display persisted ranking rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Symbol: showSymbol,
			Limit:  showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showSymbol, "symbol", "", "Show one asset's recent history instead of the latest run")
	showCmd.Flags().IntVar(&showLimit, "limit", 30, "Number of rows to display")
}
