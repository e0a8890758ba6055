package main

import (
	"github.com/spf13/cobra"

	"biblio/internal/api"
	"biblio/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "biblio",
	Short: "E-book library server with full-text search",
	Long: `Biblio is an e-book library server. It ingests EPUB archives,
extracts their chapters into Postgres, and serves the library over a
JSON API.

The server provides:
  - Author and book browsing with pagination
  - Plain text chapter retrieval
  - In-book phrase search with highlighted snippets
  - Optional Redis caching of read responses`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ~/.biblio/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "biblio home directory (default: ~/.biblio)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
