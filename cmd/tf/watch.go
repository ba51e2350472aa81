package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/timeforged/timeforged/internal/activity"
	"github.com/timeforged/timeforged/internal/config"
	"github.com/timeforged/timeforged/internal/watchlist"
)

var initYes bool

var initCmd = &cobra.Command{
	Use:     "init <dir>",
	GroupID: "tracking",
	Short:   "Start tracking a directory of projects",
	Long: `Start tracking every project below a directory.

Each first-level subdirectory of <dir> is treated as a project. The
directory is added to the watch list; a running daemon starts watching it
immediately, otherwise it is picked up on the next 'tf serve'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := watchlist.Canonicalize(args[0])
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", watchlist.ErrNotDirectory, dir)
		}

		projects, err := discoverProjects(dir)
		if err != nil {
			return err
		}

		if !initYes && isTerminal(os.Stdin) {
			ok := true
			confirm := huh.NewConfirm().
				Title(fmt.Sprintf("Track %d projects under %s?", len(projects), dir)).
				Affirmative("Track").
				Negative("Cancel").
				Value(&ok)
			if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
				return err
			}
			if !ok {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		path, viaDaemon, err := watchDir(cmd.Context(), dir)
		if err != nil {
			return err
		}

		fmt.Printf("%s Tracking enabled for %s\n", renderPass("✓"), renderHeader(path))
		if len(projects) > 0 {
			fmt.Printf("\n  %s projects found:\n", renderHeader(fmt.Sprint(len(projects))))
			for _, name := range projects {
				fmt.Printf("    %s %s\n", renderMuted("→"), name)
			}
		}
		fmt.Println()
		if !viaDaemon {
			fmt.Printf("  %s daemon is not running; start it with %s\n", renderWarn("⚠"), renderAccent("tf serve"))
		}
		fmt.Printf("  Run %s to see today's progress.\n", renderAccent("tf today"))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:     "watch <dir>...",
	GroupID: "tracking",
	Short:   "Add directories to the watch list",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, arg := range args {
			path, viaDaemon, err := watchDir(cmd.Context(), arg)
			if err != nil {
				return err
			}
			suffix := ""
			if !viaDaemon {
				suffix = renderMuted(" (applied when the daemon starts)")
			}
			fmt.Printf("%s Watching %s%s\n", renderPass("✓"), path, suffix)
		}
		return nil
	},
}

var unwatchCmd = &cobra.Command{
	Use:     "unwatch <dir>...",
	GroupID: "tracking",
	Short:   "Remove directories from the watch list",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, arg := range args {
			path, err := unwatchDir(cmd.Context(), arg)
			if err != nil {
				return err
			}
			fmt.Printf("%s Stopped watching %s\n", renderPass("✓"), path)
		}
		return nil
	},
}

var watchedCmd = &cobra.Command{
	Use:     "watched",
	GroupID: "tracking",
	Short:   "List watched directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := newClient().Watched(cmd.Context())
		if errors.Is(err, ErrDaemonUnavailable) {
			list, loadErr := watchlist.Load(listPath())
			if loadErr != nil {
				return loadErr
			}
			entries, err = list.Dirs, nil
		}
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No directories are being watched.")
			fmt.Printf("Use %s to start tracking.\n", renderAccent("tf init <path>"))
			return nil
		}
		fmt.Print(renderWatched(entries, time.Now()))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "do not ask for confirmation")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(unwatchCmd)
	rootCmd.AddCommand(watchedCmd)
}

// listPath is the watch list next to the config file.
func listPath() string {
	return watchlist.DefaultPath(config.ConfigDir())
}

// watchDir adds dir through the daemon, or edits the watch list file
// directly when the daemon is down.
func watchDir(ctx context.Context, dir string) (string, bool, error) {
	path, err := newClient().Watch(ctx, watchlist.Canonicalize(dir))
	if err == nil {
		return path, true, nil
	}
	if !errors.Is(err, ErrDaemonUnavailable) {
		return "", false, err
	}

	list, err := watchlist.Load(listPath())
	if err != nil {
		return "", false, err
	}
	path, added, err := list.Add(dir, time.Now())
	if err != nil {
		return "", false, err
	}
	if added {
		if err := list.Save(listPath()); err != nil {
			return "", false, err
		}
	}
	return path, false, nil
}

func unwatchDir(ctx context.Context, dir string) (string, error) {
	path, err := newClient().Unwatch(ctx, watchlist.Canonicalize(dir))
	if err == nil || !errors.Is(err, ErrDaemonUnavailable) {
		return path, err
	}

	list, err := watchlist.Load(listPath())
	if err != nil {
		return "", err
	}
	path, err = list.Remove(dir)
	if err != nil {
		return "", err
	}
	return path, list.Save(listPath())
}

// discoverProjects returns the sorted names of the visible, non-ignored
// subdirectories of dir.
func discoverProjects(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var projects []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || activity.IsIgnoredDir(e.Name()) {
			continue
		}
		projects = append(projects, e.Name())
	}
	sort.Strings(projects)
	return projects, nil
}

func renderWatched(entries []watchlist.Entry, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", renderHeader("Watched directories"))
	for _, e := range entries {
		fmt.Fprintf(&b, "  %-50s %s\n", e.Path, renderMuted("added "+humanize.RelTime(e.AddedAt, now, "ago", "from now")))
	}
	return b.String()
}
