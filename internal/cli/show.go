package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"loan-viability/internal/app"
)

var (
	showLimit  int
	showLoanID string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:  showLimit,
			LoanID: showLoanID,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of assessments to display")
	showCmd.Flags().StringVar(&showLoanID, "loan-id", "", "Only show assessments of this loan")
}
