package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timeforged/timeforged/internal/daemon"
	"github.com/timeforged/timeforged/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "daemon",
	Short:   "Run the tracking daemon in the foreground",
	Long: `Run the TimeForged daemon.

The daemon watches every directory in the watch list, records file
activity to the database and serves the HTTP API used by the other
commands. It stops on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server.Version = Version

		d, err := daemon.New(daemon.Options{Config: cfg})
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return d.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
