package report

import (
	"sort"
	"strconv"
	"time"

	"github.com/timeforged/timeforged/internal/activity"
)

// DefaultIdleTimeout is the gap at or above which time is not credited.
const DefaultIdleTimeout = 300 * time.Second

// Engine applies the idle-gap heuristic to a set of events.
type Engine struct {
	idle time.Duration
}

// NewEngine creates an Engine. A non-positive idle uses DefaultIdleTimeout.
func NewEngine(idle time.Duration) Engine {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return Engine{idle: idle}
}

// IdleTimeout returns the configured idle timeout.
func (e Engine) IdleTimeout() time.Duration {
	return e.idle
}

// sorted returns events ordered by (timestamp, id) without modifying the input.
func sorted(events []activity.Event) []activity.Event {
	out := append([]activity.Event(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// credit walks events in order and returns the credited seconds and event
// count per partition key. Events for which key reports false are skipped.
func (e Engine) credit(events []activity.Event, key func(*activity.Event) (string, bool)) (map[string]float64, map[string]int64) {
	seconds := make(map[string]float64)
	counts := make(map[string]int64)
	prev := make(map[string]time.Time)

	for i := range events {
		ev := &events[i]
		k, ok := key(ev)
		if !ok {
			continue
		}
		counts[k]++
		if _, seen := seconds[k]; !seen {
			seconds[k] = 0
		}
		if last, seen := prev[k]; seen {
			if gap := ev.Timestamp.Sub(last); gap < e.idle {
				seconds[k] += gap.Seconds()
			}
		}
		prev[k] = ev.Timestamp
	}
	return seconds, counts
}

// Total returns the credited seconds across all events.
func (e Engine) Total(events []activity.Event) float64 {
	seconds, _ := e.credit(sorted(events), func(*activity.Event) (string, bool) {
		return "", true
	})
	return seconds[""]
}

// ByCategory partitions events by key and returns one summary per value,
// sorted by seconds descending and then name. Events with an empty value
// are excluded.
func (e Engine) ByCategory(events []activity.Event, key func(*activity.Event) string) []activity.CategorySummary {
	seconds, _ := e.credit(sorted(events), func(ev *activity.Event) (string, bool) {
		k := key(ev)
		return k, k != ""
	})

	total := 0.0
	for _, s := range seconds {
		total += s
	}

	out := make([]activity.CategorySummary, 0, len(seconds))
	for name, s := range seconds {
		out = append(out, activity.CategorySummary{
			Name:         name,
			TotalSeconds: s,
			Percent:      activity.Percent(s, total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSeconds != out[j].TotalSeconds {
			return out[i].TotalSeconds > out[j].TotalSeconds
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ByProject is ByCategory keyed on the event's project.
func (e Engine) ByProject(events []activity.Event) []activity.CategorySummary {
	return e.ByCategory(events, func(ev *activity.Event) string { return ev.Project })
}

// ByLanguage is ByCategory keyed on the event's language.
func (e Engine) ByLanguage(events []activity.Event) []activity.CategorySummary {
	return e.ByCategory(events, func(ev *activity.Event) string { return ev.Language })
}

// ByDay partitions events by UTC calendar day, ascending.
func (e Engine) ByDay(events []activity.Event) []activity.DaySummary {
	seconds, _ := e.credit(sorted(events), func(ev *activity.Event) (string, bool) {
		return ev.Timestamp.UTC().Format(time.DateOnly), true
	})

	total := 0.0
	for _, s := range seconds {
		total += s
	}

	out := make([]activity.DaySummary, 0, len(seconds))
	for date, s := range seconds {
		out = append(out, activity.DaySummary{
			Date:         date,
			TotalSeconds: s,
			Percent:      activity.Percent(s, total),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ByHour partitions events by UTC hour of day (0-23), ascending. Only hours
// with at least one event are returned.
func (e Engine) ByHour(events []activity.Event) []activity.HourlyActivity {
	seconds, counts := e.credit(sorted(events), func(ev *activity.Event) (string, bool) {
		return hourKeys[ev.Timestamp.UTC().Hour()], true
	})

	total := 0.0
	for _, s := range seconds {
		total += s
	}

	out := make([]activity.HourlyActivity, 0, len(seconds))
	for hour, key := range hourKeys {
		s, ok := seconds[key]
		if !ok {
			continue
		}
		out = append(out, activity.HourlyActivity{
			Hour:         hour,
			TotalSeconds: s,
			EventCount:   counts[key],
			Percent:      activity.Percent(s, total),
		})
	}
	return out
}

var hourKeys = func() [24]string {
	var keys [24]string
	for h := range keys {
		keys[h] = strconv.Itoa(h)
	}
	return keys
}()

// Sessions groups events into maximal runs where consecutive events are
// less than the idle timeout apart. Sessions are ordered by start.
func (e Engine) Sessions(events []activity.Event) []activity.Session {
	events = sorted(events)

	var out []activity.Session
	var cur *activity.Session
	for i := range events {
		ev := &events[i]
		if cur == nil || ev.Timestamp.Sub(cur.End) >= e.idle {
			out = append(out, activity.Session{Start: ev.Timestamp, End: ev.Timestamp})
			cur = &out[len(out)-1]
		}
		cur.End = ev.Timestamp
		cur.EventCount++
		if cur.Project == "" {
			cur.Project = ev.Project
		}
	}

	for i := range out {
		out[i].DurationSeconds = out[i].End.Sub(out[i].Start).Seconds()
	}
	return out
}

// Summary builds the aggregate report for events in [from, to).
func (e Engine) Summary(events []activity.Event, from, to time.Time) *activity.Summary {
	return &activity.Summary{
		TotalSeconds: e.Total(events),
		From:         from,
		To:           to,
		Projects:     e.ByProject(events),
		Languages:    e.ByLanguage(events),
		Days:         e.ByDay(events),
	}
}
