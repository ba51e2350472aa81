// Package activity defines the activity event model and the stateless
// classification helpers that run before an event is recorded.
//
// # Events
//
// An Event is the durable unit of the tracker: one observation that the user
// touched an entity (a file path, a URL, a meeting) at a point in time.
// Events are append-only; once stored they are never modified.
//
//	ev := &activity.Event{
//	    UserID:    userID,
//	    Timestamp: time.Now(),
//	    Type:      activity.EventTypeFile,
//	    Entity:    "/home/me/code/app/main.go",
//	    Project:   "app",
//	    Language:  "Go",
//	    Activity:  activity.KindCoding,
//	}
//	if err := ev.Validate(); err != nil {
//	    return err
//	}
//
// Project, Language and Branch are best-effort. The empty string means the
// value is unknown and is stored as NULL.
//
// # Classification
//
// IsIgnoredPath rejects paths inside build, VCS and dependency directories
// or with binary/lock extensions. Filter layers user-supplied gitignore-style
// patterns on top of that fixed deny-set.
//
// LanguageFor maps a filename to a language label and reports false for
// unrecognized names, so callers can tell "unknown" from a real label.
//
// # Derived reports
//
// Session, CategorySummary, DaySummary, HourlyActivity and Summary are
// computed per request by package report and are never persisted.
package activity
