package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateCommodity string
	simulateStore     string
	simulatePrice     float64
	simulateSRP       float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-breach",
	Short: "Send a synthetic breach through the configured notification channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 || simulateSRP <= 0 {
			return errors.New("--price and --srp must be greater than 0")
		}

		price := decimal.NewFromFloat(simulatePrice)
		srp := decimal.NewFromFloat(simulateSRP)
		return getApp().SimulateBreach(cmd.Context(), simulateCommodity, simulateStore, price, srp)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCommodity, "commodity", "Test Commodity", "Commodity name for the synthetic breach")
	simulateCmd.Flags().StringVar(&simulateStore, "store", "Test Store", "Store name for the synthetic breach")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Observed retail price")
	simulateCmd.Flags().Float64Var(&simulateSRP, "srp", 0, "Suggested retail price ceiling")
}
