// Package cli implements the clowder command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/soyeahso/clowder/internal/config"
	"github.com/soyeahso/clowder/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// set at init time
	log *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clowder",
		Short: "Clowder — conversational agent engine",
		Long:  "Clowder runs a tool-using LLM agent behind messaging channels: terminal, IRC, WebSocket, and cron.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				cfgFile = config.DefaultConfigPath()
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.clowder/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newGatewayCmd())
	cmd.AddCommand(newMessageCmd())
	cmd.AddCommand(newSessionsCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
