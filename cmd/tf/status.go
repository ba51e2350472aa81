package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/timeforged/timeforged/internal/server"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "daemon",
	Short:   "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		status, err := client.Status(cmd.Context())
		if errors.Is(err, ErrDaemonUnavailable) {
			fmt.Printf("%s TimeForged daemon is not running at %s\n", renderWarn("⚠"), client.baseURL)
			fmt.Printf("  Start it with %s\n", renderAccent("tf serve"))
			if info, statErr := os.Stat(cfg.DatabasePath); statErr == nil {
				fmt.Printf("  Database: %s (%s)\n", cfg.DatabasePath, humanize.Bytes(uint64(info.Size())))
			}
			return nil
		}
		if err != nil {
			return err
		}

		renderStatus(os.Stdout, status, time.Now())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func renderStatus(w io.Writer, s *server.StatusResponse, now time.Time) {
	fmt.Fprintf(w, "%s\n", renderHeader("TimeForged Status"))
	fmt.Fprintf(w, "  Version:  %s\n", s.Version)
	fmt.Fprintf(w, "  Status:   %s\n", renderPass(s.Status))
	fmt.Fprintf(w, "  Uptime:   %s\n", formatDuration(s.UptimeSeconds))
	fmt.Fprintf(w, "  User:     %s\n", s.User)
	fmt.Fprintf(w, "  Users:    %s\n", humanize.Comma(int64(s.Users)))
	fmt.Fprintf(w, "  Events:   %s\n", humanize.Comma(s.Events))
	fmt.Fprintf(w, "  Watching: %d roots (%s directories)\n", s.WatchedRoots, humanize.Comma(int64(s.WatchedDirs)))
	fmt.Fprintf(w, "  Idle:     %s\n", formatDuration(s.IdleTimeout))
	if s.Dropped > 0 {
		fmt.Fprintf(w, "  Dropped:  %s %s\n", humanize.Comma(int64(s.Dropped)), renderWarn("changes lost to a full queue"))
	}
	if s.Clients > 0 {
		fmt.Fprintf(w, "  Clients:  %d live\n", s.Clients)
	}
	if s.LastEvent != nil {
		ev := s.LastEvent
		what := ev.Entity
		if ev.Project != "" {
			what = ev.Project + ": " + what
		}
		fmt.Fprintf(w, "  Last:     %s %s\n", what, renderMuted("("+humanize.RelTime(ev.Timestamp, now, "ago", "from now")+")"))
	}
}
