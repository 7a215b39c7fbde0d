package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"loan-viability/internal/app"
)

var (
	simulateRequested    string
	simulateInstallment  string
	simulateInstallments int
	simulatePaid         int
	simulateRates        []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Score loan terms offline",
	Long:  "Score loan terms given as flags. Without --rates the built-in nine-month fallback inflation series is used.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateRequested == "" || simulateInstallment == "" {
			return errors.New("--requested and --installment-amount must be provided")
		}

		return getApp().Simulate(cmd.Context(), app.SimulateOptions{
			RequestedAmount:   simulateRequested,
			InstallmentAmount: simulateInstallment,
			Installments:      simulateInstallments,
			Paid:              simulatePaid,
			Rates:             simulateRates,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateRequested, "requested", "", "Requested principal")
	simulateCmd.Flags().StringVar(&simulateInstallment, "installment-amount", "", "Amount of each installment")
	simulateCmd.Flags().IntVar(&simulateInstallments, "installments", 12, "Number of installments")
	simulateCmd.Flags().IntVar(&simulatePaid, "paid", 0, "Installments already paid")
	simulateCmd.Flags().StringSliceVar(&simulateRates, "rates", nil, "Monthly inflation rates in percent, oldest first")
}
