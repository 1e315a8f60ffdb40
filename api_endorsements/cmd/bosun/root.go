package main

import (
	"github.com/spf13/cobra"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

func newRootCmd(logger logging.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bosun",
		Short:         "Endorsement and pin service for the community directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCmd(logger))
	rootCmd.AddCommand(newMigrateCmd(logger))
	rootCmd.AddCommand(newSweepCmd(logger))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
