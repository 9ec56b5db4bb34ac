// Package cli defines the mentionbot command tree.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:           "mentionbot",
		Short:         "Keyword-monitoring reply bot with an HTTP hand-off to an external responder",
		Long:          "mentionbot watches a platform for posts matching a keyword, hands each one to an external responder over HTTP, and publishes the returned reply as a quote (optionally also as a direct message).",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newRunCmd(&debug),
		newCrawlCmd(&debug),
		newStatusCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
