package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/timeforged/timeforged/internal/server"
	"github.com/timeforged/timeforged/internal/watcher"
)

var (
	sendProject  string
	sendLanguage string
	sendType     string
	sendActivity string
)

var sendCmd = &cobra.Command{
	Use:     "send <entity>",
	GroupID: "tracking",
	Short:   "Record an event manually",
	Long: `Record one event for <entity>, a file path, URL or other subject.

Project and language are inferred from the entity when not given.`,
	Example: `  tf send ~/code/api/main.go
  tf send https://docs.example.com --type browser --activity browsing`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UTC()
		ev, err := newClient().SendEvent(cmd.Context(), &server.EventRequest{
			Entity:    args[0],
			Type:      sendType,
			Timestamp: &now,
			Project:   sendProject,
			Language:  sendLanguage,
			Activity:  sendActivity,
			Machine:   watcher.MachineName(),
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s event #%d for %s\n", renderPass("Sent"), ev.ID, ev.Entity)
		if ev.Project != "" || ev.Language != "" {
			fmt.Printf("  %s\n", renderMuted(fmt.Sprintf("project=%s language=%s", ev.Project, ev.Language)))
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendProject, "project", "", "project name (inferred when empty)")
	sendCmd.Flags().StringVar(&sendLanguage, "language", "", "language (inferred from the extension when empty)")
	sendCmd.Flags().StringVar(&sendType, "type", "file", "event type: file, terminal, browser, meeting, custom")
	sendCmd.Flags().StringVar(&sendActivity, "activity", "", "activity: coding, browsing, debugging, building, communicating, designing, other")

	rootCmd.AddCommand(sendCmd)
}
