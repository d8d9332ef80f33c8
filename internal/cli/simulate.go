package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateSymbol  string
	simulateBuyAsk  float64
	simulateSellBid float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Feed synthetic two-venue prices through the alert pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateSymbol == "" {
			return errors.New("--symbol is required")
		}
		if simulateBuyAsk <= 0 || simulateSellBid <= 0 {
			return errors.New("--buy-ask and --sell-bid must be greater than 0")
		}

		buyAsk := decimal.NewFromFloat(simulateBuyAsk)
		sellBid := decimal.NewFromFloat(simulateSellBid)
		return getApp().SimulateAlert(cmd.Context(), simulateSymbol, buyAsk, sellBid)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSymbol, "symbol", "", "Tracked asset symbol, e.g. BTC")
	simulateCmd.Flags().Float64Var(&simulateBuyAsk, "buy-ask", 0, "Synthetic ask price on the buy venue")
	simulateCmd.Flags().Float64Var(&simulateSellBid, "sell-bid", 0, "Synthetic bid price on the sell venue")
}
