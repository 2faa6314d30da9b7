package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Belphemur/StreamScraper/internal/config"
)

var version = "dev"

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "streamscraper",
	Short: "Browse, search and resolve videos from streaming catalog sites",
	Long: `streamscraper - scraping core for streaming catalog sites

Browse provider catalogs, search every provider of a language at once
and resolve playable video URLs. Run 'streamscraper serve' to start
the HTTP API.

Configuration is read from config.yaml and APP_* environment variables.`,
	SilenceUsage: true,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = config.CloseLogFile()
	},
}

// Execute runs the root command and exits non-zero on failure.
// SIGINT and SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("streamscraper {{.Version}}\n")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
