package activity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxEntityLength is the longest entity string accepted by Validate.
const MaxEntityLength = 1024

var (
	// ErrEmptyEntity is returned when an event has no entity.
	ErrEmptyEntity = errors.New("entity cannot be empty")

	// ErrEntityTooLong is returned when an entity exceeds MaxEntityLength.
	ErrEntityTooLong = errors.New("entity too long")
)

// EventType classifies where an event came from.
type EventType string

const (
	EventTypeFile     EventType = "file"
	EventTypeTerminal EventType = "terminal"
	EventTypeBrowser  EventType = "browser"
	EventTypeMeeting  EventType = "meeting"
	EventTypeCustom   EventType = "custom"
)

// ParseEventType converts a stored or user-supplied string to an EventType.
// Unknown values map to EventTypeCustom.
func ParseEventType(s string) EventType {
	switch EventType(s) {
	case EventTypeFile, EventTypeTerminal, EventTypeBrowser, EventTypeMeeting:
		return EventType(s)
	default:
		return EventTypeCustom
	}
}

// ActivityKind describes what the user was doing.
type ActivityKind string

const (
	KindCoding        ActivityKind = "coding"
	KindBrowsing      ActivityKind = "browsing"
	KindDebugging     ActivityKind = "debugging"
	KindBuilding      ActivityKind = "building"
	KindCommunicating ActivityKind = "communicating"
	KindDesigning     ActivityKind = "designing"
	KindOther         ActivityKind = "other"
)

// ParseActivityKind converts a string to an ActivityKind.
// The empty string stays empty (no activity recorded); unknown values map to KindOther.
func ParseActivityKind(s string) ActivityKind {
	switch ActivityKind(s) {
	case "":
		return ""
	case KindCoding, KindBrowsing, KindDebugging, KindBuilding, KindCommunicating, KindDesigning:
		return ActivityKind(s)
	default:
		return KindOther
	}
}

// Event is a single recorded activity observation.
type Event struct {
	// ID is assigned by the store on insert. Zero means not yet persisted.
	ID int64 `json:"id,omitempty" yaml:"id,omitempty"`

	UserID    uuid.UUID `json:"user_id" yaml:"user_id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Type      EventType `json:"event_type" yaml:"event_type"`

	// Entity is the file path, URL or other subject of the event. Never empty.
	Entity string `json:"entity" yaml:"entity"`

	Project  string       `json:"project,omitempty" yaml:"project,omitempty"`
	Language string       `json:"language,omitempty" yaml:"language,omitempty"`
	Branch   string       `json:"branch,omitempty" yaml:"branch,omitempty"`
	Activity ActivityKind `json:"activity,omitempty" yaml:"activity,omitempty"`
	Machine  string       `json:"machine,omitempty" yaml:"machine,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// CreatedAt is when the store accepted the event.
	CreatedAt time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
}

// Validate checks the invariants every stored event must hold.
func (e *Event) Validate() error {
	if e.Entity == "" {
		return ErrEmptyEntity
	}
	if len(e.Entity) > MaxEntityLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrEntityTooLong, len(e.Entity), MaxEntityLength)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if e.Type == "" {
		return fmt.Errorf("event_type is required")
	}
	return nil
}

// Query selects events for reconstruction.
// The range is half-open: From <= timestamp < To.
type Query struct {
	UserID  uuid.UUID
	From    time.Time
	To      time.Time
	Project string
}
