package activity

import "time"

// Session is a maximal run of events separated by gaps shorter than the
// idle timeout.
type Session struct {
	Start           time.Time `json:"start" yaml:"start"`
	End             time.Time `json:"end" yaml:"end"`
	DurationSeconds float64   `json:"duration_seconds" yaml:"duration_seconds"`
	Project         string    `json:"project,omitempty" yaml:"project,omitempty"`
	EventCount      int64     `json:"event_count" yaml:"event_count"`
}

// CategorySummary is the time attributed to one project or language.
type CategorySummary struct {
	Name         string  `json:"name" yaml:"name"`
	TotalSeconds float64 `json:"total_seconds" yaml:"total_seconds"`
	Percent      float64 `json:"percent" yaml:"percent"`
}

// DaySummary is the time attributed to one UTC calendar day.
type DaySummary struct {
	Date         string  `json:"date" yaml:"date"`
	TotalSeconds float64 `json:"total_seconds" yaml:"total_seconds"`
	Percent      float64 `json:"percent" yaml:"percent"`
}

// HourlyActivity is the time attributed to one UTC hour of the day.
type HourlyActivity struct {
	Hour         int     `json:"hour" yaml:"hour"`
	TotalSeconds float64 `json:"total_seconds" yaml:"total_seconds"`
	EventCount   int64   `json:"event_count" yaml:"event_count"`
	Percent      float64 `json:"percent" yaml:"percent"`
}

// Summary is the aggregate report for a range.
type Summary struct {
	TotalSeconds float64           `json:"total_seconds" yaml:"total_seconds"`
	From         time.Time         `json:"from" yaml:"from"`
	To           time.Time         `json:"to" yaml:"to"`
	Projects     []CategorySummary `json:"projects" yaml:"projects"`
	Languages    []CategorySummary `json:"languages" yaml:"languages"`
	Days         []DaySummary      `json:"days" yaml:"days"`
}

// Percent returns part as a percentage of total, or 0 when total is 0.
func Percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}
