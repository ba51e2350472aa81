// Command tf is the TimeForged command line: it runs the tracking daemon
// and queries it for reports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timeforged/timeforged/internal/config"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	serverURL  string
	noColor    bool

	// cfg is loaded in PersistentPreRunE.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tf",
	Short: "TimeForged: automatic coding time tracking",
	Long: `TimeForged records which files you work on and reconstructs how long
you spent on each project and language.

Start the daemon with 'tf serve', point it at your code with 'tf init ~/code',
and check progress with 'tf today'.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupColor(noColor)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/timeforged/config.toml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "daemon URL (default from config host and port)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "daemon", Title: "Daemon:"},
		&cobra.Group{ID: "tracking", Title: "Tracking:"},
		&cobra.Group{ID: "reports", Title: "Reports:"},
	)
}

// newClient returns a client for the configured daemon.
func newClient() *Client {
	url := serverURL
	if url == "" {
		url = cfg.BaseURL()
	}
	return NewClient(url)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", renderFail("error:"), err)
		os.Exit(1)
	}
}
