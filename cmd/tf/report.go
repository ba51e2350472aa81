package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/timeforged/timeforged/internal/activity"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	reportRangeName string
	reportFrom      string
	reportTo        string
	reportProject   string
	reportFormat    string
)

var todayCmd = &cobra.Command{
	Use:     "today",
	GroupID: "reports",
	Short:   "Show today's summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, label, err := resolveRange("today", "", "", time.Now())
		if err != nil {
			return err
		}
		r.Project = reportProject
		summary, err := newClient().Summary(cmd.Context(), r)
		if err != nil {
			return err
		}
		return writeOutput(os.Stdout, reportFormat, summary, func(w io.Writer) {
			renderSummary(w, label, summary)
		})
	},
}

var reportCmd = &cobra.Command{
	Use:     "report",
	GroupID: "reports",
	Short:   "Show a summary by project, language and day",
	Long: `Show time per project, language and day.

The range is one of today, yesterday, week (last 7 days) or month (last 30
days). --from and --to override it and accept dates, RFC3339 timestamps or
natural language such as "last monday" or "3 days ago".`,
	Example: `  tf report --range month
  tf report --from "last monday" --project api
  tf report --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, label, err := resolveRange(reportRangeName, reportFrom, reportTo, time.Now())
		if err != nil {
			return err
		}
		r.Project = reportProject
		summary, err := newClient().Summary(cmd.Context(), r)
		if err != nil {
			return err
		}
		return writeOutput(os.Stdout, reportFormat, summary, func(w io.Writer) {
			renderSummary(w, label, summary)
		})
	},
}

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	GroupID: "reports",
	Short:   "List reconstructed work sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, label, err := resolveRange(reportRangeName, reportFrom, reportTo, time.Now())
		if err != nil {
			return err
		}
		r.Project = reportProject
		sessions, err := newClient().Sessions(cmd.Context(), r)
		if err != nil {
			return err
		}
		return writeOutput(os.Stdout, reportFormat, sessions, func(w io.Writer) {
			renderSessions(w, label, sessions)
		})
	},
}

var activityCmd = &cobra.Command{
	Use:     "activity",
	GroupID: "reports",
	Short:   "Show activity by hour of day",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, label, err := resolveRange(reportRangeName, reportFrom, reportTo, time.Now())
		if err != nil {
			return err
		}
		r.Project = reportProject
		hours, err := newClient().Activity(cmd.Context(), r)
		if err != nil {
			return err
		}
		return writeOutput(os.Stdout, reportFormat, hours, func(w io.Writer) {
			renderActivity(w, label, hours)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{reportCmd, sessionsCmd, activityCmd} {
		cmd.Flags().StringVar(&reportRangeName, "range", "week", "time range: today, yesterday, week, month")
		cmd.Flags().StringVar(&reportFrom, "from", "", "start of the range (date, RFC3339 or natural language)")
		cmd.Flags().StringVar(&reportTo, "to", "", "end of the range (date, RFC3339 or natural language)")
	}
	for _, cmd := range []*cobra.Command{todayCmd, reportCmd, sessionsCmd, activityCmd} {
		cmd.Flags().StringVar(&reportProject, "project", "", "only include this project")
		cmd.Flags().StringVar(&reportFormat, "format", formatText, "output format: text, json, yaml")
		rootCmd.AddCommand(cmd)
	}
}

// resolveRange turns the --range, --from and --to flags into a report
// range and a label for the header. Named ranges are in UTC; today and
// yesterday cover whole days.
func resolveRange(name, from, to string, now time.Time) (ReportRange, string, error) {
	now = now.UTC()
	if from != "" || to != "" {
		var r ReportRange
		var err error
		if r.From, err = parseWhen(from, now); err != nil {
			return r, "", fmt.Errorf("invalid --from: %w", err)
		}
		if r.To, err = parseWhen(to, now); err != nil {
			return r, "", fmt.Errorf("invalid --to: %w", err)
		}
		if r.To.IsZero() {
			r.To = now
		}
		if !r.From.IsZero() && r.From.After(r.To) {
			return r, "", fmt.Errorf("--from %s is after --to %s", r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
		}
		return r, "Custom range", nil
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch name {
	case "today":
		return ReportRange{From: midnight, To: midnight.AddDate(0, 0, 1)}, "Today", nil
	case "yesterday":
		return ReportRange{From: midnight.AddDate(0, 0, -1), To: midnight}, "Yesterday", nil
	case "week", "":
		return ReportRange{From: now.AddDate(0, 0, -7), To: now}, "Last 7 days", nil
	case "month":
		return ReportRange{From: now.AddDate(0, 0, -30), To: now}, "Last 30 days", nil
	default:
		return ReportRange{}, "", fmt.Errorf("unknown range %q: use today, yesterday, week or month", name)
	}
}

var whenParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseWhen accepts RFC3339, YYYY-MM-DD or an English phrase relative to
// now. The empty string yields the zero time.
func parseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	result, err := whenParser.Parse(s, now)
	if err != nil {
		return time.Time{}, err
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("cannot understand %q", s)
	}
	return result.Time, nil
}

// writeOutput writes v as JSON or YAML, or calls text for the text format.
func writeOutput(w io.Writer, format string, v any, text func(io.Writer)) error {
	switch format {
	case formatText, "":
		text(w)
		return nil
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q: use text, json or yaml", format)
	}
}

const barWidth = 20

func renderSummary(w io.Writer, label string, s *activity.Summary) {
	fmt.Fprintf(w, "%s\n", renderHeader("Report: "+label))
	fmt.Fprintf(w, "  Total: %s\n", renderPass(formatDuration(s.TotalSeconds)))

	renderCategories(w, "Projects", s.Projects)
	renderCategories(w, "Languages", s.Languages)

	if len(s.Days) > 1 {
		fmt.Fprintf(w, "\n  %s\n", renderHeader("Daily breakdown"))
		for _, d := range s.Days {
			fmt.Fprintf(w, "    %-20s %9s  %s\n", d.Date, formatDuration(d.TotalSeconds), bar(d.Percent, barWidth))
		}
	}
}

func renderCategories(w io.Writer, title string, cats []activity.CategorySummary) {
	if len(cats) == 0 {
		return
	}
	fmt.Fprintf(w, "\n  %s\n", renderHeader(title))
	for _, c := range cats {
		fmt.Fprintf(w, "    %-20s %9s  %3.0f%%  %s\n", c.Name, formatDuration(c.TotalSeconds), c.Percent, bar(c.Percent, barWidth))
	}
}

func renderSessions(w io.Writer, label string, sessions []activity.Session) {
	fmt.Fprintf(w, "%s\n", renderHeader("Sessions: "+label))
	if len(sessions) == 0 {
		fmt.Fprintln(w, "  No sessions recorded.")
		return
	}

	var total float64
	for _, s := range sessions {
		total += s.DurationSeconds
		project := s.Project
		if project == "" {
			project = renderMuted("-")
		}
		fmt.Fprintf(w, "  %s  %s-%s  %9s  %-20s %s\n",
			s.Start.UTC().Format(time.DateOnly),
			s.Start.UTC().Format("15:04"),
			s.End.UTC().Format("15:04"),
			formatDuration(s.DurationSeconds),
			project,
			renderMuted(fmt.Sprintf("%d events", s.EventCount)),
		)
	}
	fmt.Fprintf(w, "\n  %d sessions, %s total\n", len(sessions), formatDuration(total))
}

func renderActivity(w io.Writer, label string, hours []activity.HourlyActivity) {
	fmt.Fprintf(w, "%s\n", renderHeader("Activity by hour (UTC): "+label))
	if len(hours) == 0 {
		fmt.Fprintln(w, "  No activity recorded.")
		return
	}
	for _, h := range hours {
		fmt.Fprintf(w, "  %02d:00  %9s  %s\n", h.Hour, formatDuration(h.TotalSeconds), bar(h.Percent, barWidth))
	}
}
