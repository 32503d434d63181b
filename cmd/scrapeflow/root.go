package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for scrapeflow.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrapeflow",
		Short: "Scrape a web page and turn it into a short report",
		Long: `scrapeflow runs a three step workflow for a web page:

  1. Scraper Agent   fetches the page and extracts its visible text
  2. Research Agent  summarizes the text
  3. Writer Agent    writes a report from the summary

When an OpenAI API key is available, the report is additionally rewritten
as prose by a language model. Results can be viewed on the command line or
in a small web UI started with 'scrapeflow serve'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .scrapeflow in current or home directory)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
