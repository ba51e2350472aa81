package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timeforged/timeforged/internal/activity"
)

// MaxBatchSize is the largest batch InsertBatch accepts.
const MaxBatchSize = 100

// ErrBatchTooLarge is returned when a batch exceeds MaxBatchSize.
var ErrBatchTooLarge = errors.New("batch too large")

// BatchResult reports how many events of a batch were stored.
type BatchResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

const insertEventSQL = `
INSERT INTO events (
	user_id, ts, event_type, entity, project, language,
	branch, activity, machine, metadata, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertEvent validates and appends ev, returning its id. ev.ID and
// ev.CreatedAt are set on success.
func (db *DB) InsertEvent(ctx context.Context, ev *activity.Event) (int64, error) {
	return insertEvent(ctx, db.conn, ev)
}

func insertEvent(ctx context.Context, x execer, ev *activity.Event) (int64, error) {
	if err := ev.Validate(); err != nil {
		return 0, fmt.Errorf("invalid event: %w", err)
	}

	var metadata sql.NullString
	if len(ev.Metadata) > 0 {
		data, err := json.Marshal(ev.Metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	createdAt := time.Now().UTC()
	res, err := x.ExecContext(ctx, insertEventSQL,
		ev.UserID.String(),
		ev.Timestamp.UTC().UnixNano(),
		string(ev.Type),
		ev.Entity,
		nullString(ev.Project),
		nullString(ev.Language),
		nullString(ev.Branch),
		nullString(string(ev.Activity)),
		nullString(ev.Machine),
		metadata,
		createdAt.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read event id: %w", err)
	}
	ev.ID = id
	ev.CreatedAt = createdAt
	return id, nil
}

// InsertBatch stores up to MaxBatchSize events in one transaction.
// Invalid events are rejected individually; the valid ones are committed.
func (db *DB) InsertBatch(ctx context.Context, events []*activity.Event) (*BatchResult, error) {
	if len(events) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d events (max %d)", ErrBatchTooLarge, len(events), MaxBatchSize)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &BatchResult{}
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("event %d: %v", i, err))
			continue
		}
		if _, err := insertEvent(ctx, tx, ev); err != nil {
			return nil, err
		}
		result.Accepted++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// QueryEvents returns the events in [q.From, q.To) ordered by timestamp and
// id. A nil user id matches every user; an empty project matches every
// project.
func (db *DB) QueryEvents(ctx context.Context, q activity.Query) ([]activity.Event, error) {
	var (
		where []string
		args  []any
	)
	if q.UserID != uuid.Nil {
		where = append(where, "user_id = ?")
		args = append(args, q.UserID.String())
	}
	if !q.From.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, q.From.UTC().UnixNano())
	}
	if !q.To.IsZero() {
		where = append(where, "ts < ?")
		args = append(args, q.To.UTC().UnixNano())
	}
	if q.Project != "" {
		where = append(where, "project = ?")
		args = append(args, q.Project)
	}

	query := `
	SELECT id, user_id, ts, event_type, entity, project, language,
	       branch, activity, machine, metadata, created_at
	FROM events`
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY ts, id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LatestEvent returns the most recent event for userID, or nil when there
// is none.
func (db *DB) LatestEvent(ctx context.Context, userID uuid.UUID) (*activity.Event, error) {
	rows, err := db.conn.QueryContext(ctx, `
	SELECT id, user_id, ts, event_type, entity, project, language,
	       branch, activity, machine, metadata, created_at
	FROM events
	WHERE user_id = ?
	ORDER BY ts DESC, id DESC
	LIMIT 1
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query latest event: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return &events[0], nil
}

// CountEvents returns the number of stored events. A nil user id counts
// every user's events.
func (db *DB) CountEvents(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM events`
	var args []any
	if userID != uuid.Nil {
		query += ` WHERE user_id = ?`
		args = append(args, userID.String())
	}

	var count int64
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func scanEvents(rows *sql.Rows) ([]activity.Event, error) {
	var events []activity.Event
	for rows.Next() {
		var (
			ev                                       activity.Event
			userID, eventType                        string
			ts, createdAt                            int64
			project, language, branch, kind, machine sql.NullString
			metadata                                 sql.NullString
		)
		err := rows.Scan(&ev.ID, &userID, &ts, &eventType, &ev.Entity,
			&project, &language, &branch, &kind, &machine, &metadata, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		if ev.UserID, err = uuid.Parse(userID); err != nil {
			return nil, fmt.Errorf("invalid user id on event %d: %w", ev.ID, err)
		}
		ev.Timestamp = time.Unix(0, ts).UTC()
		ev.CreatedAt = time.Unix(0, createdAt).UTC()
		ev.Type = activity.ParseEventType(eventType)
		ev.Project = project.String
		ev.Language = language.String
		ev.Branch = branch.String
		ev.Activity = activity.ParseActivityKind(kind.String)
		ev.Machine = machine.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &ev.Metadata); err != nil {
				return nil, fmt.Errorf("invalid metadata on event %d: %w", ev.ID, err)
			}
		}

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
