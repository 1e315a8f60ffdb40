package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
}
