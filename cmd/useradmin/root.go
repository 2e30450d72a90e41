package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:               "useradmin",
	Short:             "Admin panel for listing, editing and deleting user accounts.",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: prepareCommand,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, apiCmd, migrateCmd, usersCmd)
}
