package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/config"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

func newMigrateCmd(logger logging.Logger) *cobra.Command {
	var (
		target int
		list   bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the bosun schema migrations",
		Long:  "Apply the embedded schema migrations to DATABASE_URL. --version -1 (default) migrates to latest, 0 rolls everything back.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				names, err := store.MigrationNames()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			url := config.GetEnv("DATABASE_URL", "")
			if url == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			db, err := connectDatabase(cmd.Context(), url, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			return store.Migrate(db, target, logger)
		},
	}

	cmd.Flags().IntVar(&target, "version", -1, "target schema version")
	cmd.Flags().BoolVar(&list, "list", false, "list embedded migrations and exit")
	return cmd
}
