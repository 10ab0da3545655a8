package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs today's analysis once and stores it",
	Long: `Fetches trending candidates, analyzes them with the LLM and stores the
result for today's UTC date. A second run on the same date is a no-op and
reports "skipped".`,
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

		pipeline, err := a.newPipeline(db)
		if err != nil {
			return err
		}
		report, err := pipeline.RunOnce(cmd.Context())
		if err != nil {
			return fmt.Errorf("analysis run failed: %w", err)
		}
		return printJSON(report)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
