package main

import (
	"os"

	"github.com/spf13/cobra"

	pkglog "github.com/fitlink/chat-broker/pkg/log"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chat-broker",
		Short:         "Room-scoped chat and notification broker over WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "directory containing config.yaml")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		l := pkglog.L()
		l.Error().Err(err).Msg("chat-broker exited")
		os.Exit(1)
	}
}
