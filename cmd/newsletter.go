package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newsletterCmd = &cobra.Command{
	Use:   "newsletter",
	Short: "Sends the weekly digest to every active subscriber",
	Long: `Renders the analyses of the last lookback_days into the weekly digest and
mails a personalized copy to each active subscriber. Individual send failures
are reported but do not fail the command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		db, err := a.openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		dispatcher, err := a.newDispatcher(db)
		if err != nil {
			return err
		}
		report, err := dispatcher.SendWeekly(cmd.Context())
		if err != nil {
			return fmt.Errorf("newsletter dispatch failed: %w", err)
		}
		return printJSON(report)
	},
}

func init() {
	rootCmd.AddCommand(newsletterCmd)
}
