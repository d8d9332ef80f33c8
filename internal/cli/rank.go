package cli

import (
	"github.com/spf13/cobra"

	"arb-ranker/internal/app"
)

var (
	rankLimit   int
	rankJSON    bool
	rankPersist bool
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Run one ranking cycle and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RankOptions{
			Limit:   rankLimit,
			AsJSON:  rankJSON,
			Persist: rankPersist,
		}
		return getApp().Rank(cmd.Context(), opts)
	},
}

func init() {
	rankCmd.Flags().IntVar(&rankLimit, "limit", 0, "Limit output to the top N assets (0 = all)")
	rankCmd.Flags().BoolVar(&rankJSON, "json", false, "Print the full payload as JSON")
	rankCmd.Flags().BoolVar(&rankPersist, "persist", false, "Persist the run to the database")
}
