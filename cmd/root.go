// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trending-digest",
	Short: "A daily AI digest of trending GitHub repositories.",
	Long: `trending-digest finds repositories gaining traction on GitHub, asks an LLM
to group and summarize them once a day, stores the result, serves it over a
small read API and mails a weekly digest to newsletter subscribers.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML config file (default $TRENDING_DIGEST_CONFIG or ./config.yaml)")
}

// newLogger writes JSON logs to stderr so stdout stays free for command output.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
