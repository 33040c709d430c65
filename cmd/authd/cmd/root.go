package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "authd",
	Short: "authd brokers OAuth logins and session tokens for Threat Dragon",
	Long: `authd is the authentication service for Threat Dragon. It redirects
users to GitHub, GitLab, Bitbucket or Google for OAuth login, exchanges
authorization codes for provider credentials, and issues signed session
tokens that carry those credentials encrypted.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
