package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Refresh the inflation series on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the viability HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context())
	},
}

var inflationCmd = &cobra.Command{
	Use:   "inflation",
	Short: "Print the current inflation series and its mean",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ShowInflation(cmd.Context())
	},
}
