package main

import (
	"github.com/spf13/cobra"

	"biblio/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running biblio server via HTTP.

These commands require a running server (biblio serve).
Use --server to specify a custom server URL.

Examples:
  biblio api health                            # Check server health
  biblio api books-list                        # List all books
  biblio api search 1 "swamp king"             # Search inside book 1
  biblio api upload book.epub -u admin -p ...  # Add a book`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	for _, ep := range endpoints.All(endpoints.Config{}) {
		apiCmd.AddCommand(ep.Command(getServerURL))
	}

	rootCmd.AddCommand(apiCmd)
}
