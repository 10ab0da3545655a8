package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/naka-gawa/trending-digest/internal/usecase"
	"github.com/spf13/cobra"
)

type statsOutput struct {
	Stats      domain.CandidateStats `json:"stats"`
	Candidates []domain.Candidate    `json:"candidates,omitempty"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Fetches today's trending candidates and outputs them as JSON",
	Long: `Runs the two GitHub trend queries without calling the LLM or touching the
database, merges the results and prints star statistics together with the
candidate list in JSON format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		aggregator, err := a.newAggregator()
		if err != nil {
			return err
		}

		candidates, err := aggregator.Fetch(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch candidates: %w", err)
		}

		out := statsOutput{Stats: usecase.SummarizeCandidates(candidates, time.Now())}
		if summaryOnly, _ := cmd.Flags().GetBool("summary"); !summaryOnly {
			out.Candidates = candidates
		}
		return printJSON(out)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolP("summary", "s", false, "Print only the statistics, not the candidate list")
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(jsonData))
	return nil
}
