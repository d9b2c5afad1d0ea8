package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newOnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "on",
		Short: "Turn the daemon on",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := newClient().On(ctx); err != nil {
				return fail(log, fmt.Errorf("on: %w", err))
			}
			return nil
		},
	}
}
