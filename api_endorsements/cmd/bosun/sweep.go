package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/worker"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

func newSweepCmd(logger logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Clear expired pins once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServiceConfig()
			if err != nil {
				return err
			}
			st, _, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			cleared, err := worker.NewPinSweeper(st, nil, cfg.PinSweepInterval, logger).SweepOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep pins: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d expired pins\n", cleared)
			return nil
		},
	}
}
