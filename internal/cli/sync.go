package cli

import (
	"log"

	"github.com/spf13/cobra"

	"delta-scoreboard/internal/config"
)

// NewSyncCmd reconciles the directory into the eligibility table once and exits.
func NewSyncCmd(configPath *string) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync eligible users from the directory service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			service, cleanup, err := buildService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			count, err := service.SyncUsers(cmd.Context(), purge)
			if err != nil {
				return err
			}
			log.Printf("synced %d users (purge=%v)", count, purge)
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "delete users no longer present in the directory")
	return cmd
}
