package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage the clowder gateway",
	}

	cmd.AddCommand(newGatewayRunCmd())
	return cmd
}

func newGatewayRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the gateway and all configured channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.close()

			gw := e.buildGateway()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e.log.Info().Str("agent", e.cfg.Agent.ID).Msg("gateway starting")
			if err := gw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			e.log.Info().Msg("gateway stopped")
			return nil
		},
	}
}
