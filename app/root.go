// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "authgrid",
	Short: "AuthGrid is a web-based access administration service",
	Long: `AuthGrid is a web-based access administration service that manages
users, nestable access groups and per-route security requirements, and serves
them to grid UIs through a server-side query engine.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
