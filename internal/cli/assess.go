package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"loan-viability/internal/app"
)

var (
	assessLoanID string

	reviewLoanIDs []string
	reviewDryRun  bool
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess one loan from the admin backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(assessLoanID) == "" {
			return errors.New("--loan-id must be provided")
		}
		return getApp().Assess(cmd.Context(), assessLoanID)
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Assess several loans in sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := append([]string{}, reviewLoanIDs...)
		ids = append(ids, args...)
		if len(ids) == 0 {
			return errors.New("at least one --loan-id must be provided")
		}
		return getApp().Review(cmd.Context(), app.ReviewOptions{
			LoanIDs: ids,
			DryRun:  reviewDryRun,
		})
	},
}

func init() {
	assessCmd.Flags().StringVar(&assessLoanID, "loan-id", "", "Loan identifier in the admin backend")

	reviewCmd.Flags().StringSliceVar(&reviewLoanIDs, "loan-id", nil, "Loan identifier (repeatable or comma-separated)")
	reviewCmd.Flags().BoolVar(&reviewDryRun, "dry-run", false, "Score without persisting or alerting")
}
