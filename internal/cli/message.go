package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/soyeahso/clowder/internal/domain"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Send and manage messages",
	}

	cmd.AddCommand(newMessageSendCmd())
	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send one message to the agent and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.Join(args, " ")

			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.close()

			gw := e.buildGateway()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reply, err := gw.Process(ctx, domain.InboundMessage{
				ID:        uuid.New().String(),
				ChannelID: "cli",
				From:      from,
				ChatID:    from,
				ChatType:  domain.ChatTypeDirect,
				Body:      body,
				Timestamp: time.Now(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "local", "sender id for the session key")
	return cmd
}
