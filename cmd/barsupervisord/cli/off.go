package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newOffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "off",
		Short: "Turn the daemon off",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := newClient().Off(ctx); err != nil {
				return fail(log, fmt.Errorf("off: %w", err))
			}
			return nil
		},
	}
}
