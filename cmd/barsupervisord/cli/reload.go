package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Off, re-read configuration, on",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := newClient().Reload(ctx); err != nil {
				return fail(log, fmt.Errorf("reload: %w", err))
			}
			return nil
		},
	}
}
