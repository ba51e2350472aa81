package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/timeforged/timeforged/internal/activity"
)

// openTestDB opens a fresh database with the schema applied.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return db
}

func newUser(t *testing.T, db *DB, name string) *User {
	t.Helper()
	u, err := db.EnsureUser(context.Background(), name)
	if err != nil {
		t.Fatalf("EnsureUser() failed: %v", err)
	}
	return u
}

var base = time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

func fileEvent(user uuid.UUID, offset time.Duration, project string) *activity.Event {
	return &activity.Event{
		UserID:    user,
		Timestamp: base.Add(offset),
		Type:      activity.EventTypeFile,
		Entity:    "/code/" + project + "/main.go",
		Project:   project,
		Language:  "Go",
		Activity:  activity.KindCoding,
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "tf.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.InitSchema(); err != nil {
		t.Fatalf("second InitSchema() failed: %v", err)
	}

	for _, table := range []string{"users", "events"} {
		var count int
		err := db.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}
}

func TestEnsureUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := newUser(t, db, "alice")
	second := newUser(t, db, "alice")
	if first.ID != second.ID {
		t.Errorf("EnsureUser() created a second user: %s != %s", first.ID, second.ID)
	}

	newUser(t, db, "bob")
	n, err := db.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("CountUsers() = %d, want 2", n)
	}

	if _, err := db.GetUserByName(ctx, "carol"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserByName() error = %v, want ErrUserNotFound", err)
	}
	if _, err := db.EnsureUser(ctx, ""); err == nil {
		t.Error("EnsureUser(\"\") should fail")
	}
}

func TestInsertAndQueryEvents(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := newUser(t, db, "alice")

	ev := fileEvent(u.ID, 0, "api")
	ev.Branch = "main"
	ev.Machine = "laptop"
	ev.Metadata = map[string]any{"lines": float64(12)}

	id, err := db.InsertEvent(ctx, ev)
	if err != nil {
		t.Fatalf("InsertEvent() failed: %v", err)
	}
	if id == 0 || ev.ID != id {
		t.Errorf("InsertEvent() id = %d, ev.ID = %d", id, ev.ID)
	}

	bare := &activity.Event{UserID: u.ID, Timestamp: base.Add(time.Minute), Type: activity.EventTypeBrowser, Entity: "https://go.dev"}
	if _, err := db.InsertEvent(ctx, bare); err != nil {
		t.Fatalf("InsertEvent(bare) failed: %v", err)
	}

	events, err := db.QueryEvents(ctx, activity.Query{UserID: u.ID, From: base, To: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("QueryEvents() failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("QueryEvents() returned %d events, want 2", len(events))
	}

	got := events[0]
	if !got.Timestamp.Equal(ev.Timestamp) || got.Project != "api" || got.Branch != "main" || got.Machine != "laptop" {
		t.Errorf("round-tripped event = %+v", got)
	}
	if got.Metadata["lines"] != float64(12) {
		t.Errorf("Metadata = %v", got.Metadata)
	}
	if events[1].Project != "" || events[1].Language != "" || events[1].Activity != "" {
		t.Errorf("absent optional fields should stay empty: %+v", events[1])
	}
	if events[1].Type != activity.EventTypeBrowser {
		t.Errorf("Type = %q, want browser", events[1].Type)
	}
}

func TestQueryEvents_HalfOpenRangeAndOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := newUser(t, db, "alice")

	// Inserted out of order, with two events sharing a timestamp.
	for _, off := range []time.Duration{30 * time.Second, 0, 60 * time.Second, 30 * time.Second} {
		if _, err := db.InsertEvent(ctx, fileEvent(u.ID, off, "api")); err != nil {
			t.Fatalf("InsertEvent() failed: %v", err)
		}
	}

	events, err := db.QueryEvents(ctx, activity.Query{UserID: u.ID, From: base, To: base.Add(60 * time.Second)})
	if err != nil {
		t.Fatalf("QueryEvents() failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3 (the end bound is exclusive)", len(events))
	}
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if cur.Timestamp.Before(prev.Timestamp) || (cur.Timestamp.Equal(prev.Timestamp) && cur.ID < prev.ID) {
			t.Errorf("events not ordered by (ts, id) at %d", i)
		}
	}
}

func TestQueryEvents_Filters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")

	mustInsert := func(ev *activity.Event) {
		t.Helper()
		if _, err := db.InsertEvent(ctx, ev); err != nil {
			t.Fatalf("InsertEvent() failed: %v", err)
		}
	}
	mustInsert(fileEvent(alice.ID, 0, "api"))
	mustInsert(fileEvent(alice.ID, time.Second, "web"))
	mustInsert(fileEvent(bob.ID, 2*time.Second, "api"))

	events, err := db.QueryEvents(ctx, activity.Query{UserID: alice.ID, Project: "api"})
	if err != nil {
		t.Fatalf("QueryEvents() failed: %v", err)
	}
	if len(events) != 1 || events[0].UserID != alice.ID || events[0].Project != "api" {
		t.Errorf("filtered query = %+v", events)
	}

	total, err := db.CountEvents(ctx, uuid.Nil)
	if err != nil {
		t.Fatalf("CountEvents() failed: %v", err)
	}
	if total != 3 {
		t.Errorf("CountEvents(all) = %d, want 3", total)
	}
	mine, _ := db.CountEvents(ctx, alice.ID)
	if mine != 2 {
		t.Errorf("CountEvents(alice) = %d, want 2", mine)
	}
}

func TestInsertEvent_Invalid(t *testing.T) {
	db := openTestDB(t)
	u := newUser(t, db, "alice")

	ev := fileEvent(u.ID, 0, "api")
	ev.Entity = ""
	if _, err := db.InsertEvent(context.Background(), ev); !errors.Is(err, activity.ErrEmptyEntity) {
		t.Errorf("InsertEvent() error = %v, want ErrEmptyEntity", err)
	}
}

func TestInsertBatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := newUser(t, db, "alice")

	long := fileEvent(u.ID, 2*time.Second, "api")
	long.Entity = strings.Repeat("x", activity.MaxEntityLength+1)
	empty := fileEvent(u.ID, 3*time.Second, "api")
	empty.Entity = ""

	res, err := db.InsertBatch(ctx, []*activity.Event{
		fileEvent(u.ID, 0, "api"),
		fileEvent(u.ID, time.Second, "api"),
		long,
		empty,
	})
	if err != nil {
		t.Fatalf("InsertBatch() failed: %v", err)
	}
	if res.Accepted != 2 || res.Rejected != 2 {
		t.Errorf("InsertBatch() = %+v, want 2 accepted, 2 rejected", res)
	}

	n, _ := db.CountEvents(ctx, u.ID)
	if n != 2 {
		t.Errorf("CountEvents() = %d, want 2", n)
	}

	tooMany := make([]*activity.Event, MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = fileEvent(u.ID, time.Duration(i)*time.Second, "api")
	}
	if _, err := db.InsertBatch(ctx, tooMany); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("InsertBatch(101) error = %v, want ErrBatchTooLarge", err)
	}
}

func TestLatestEvent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := newUser(t, db, "alice")

	latest, err := db.LatestEvent(ctx, u.ID)
	if err != nil {
		t.Fatalf("LatestEvent() failed: %v", err)
	}
	if latest != nil {
		t.Errorf("LatestEvent() on empty log = %+v, want nil", latest)
	}

	db.InsertEvent(ctx, fileEvent(u.ID, time.Minute, "web"))
	db.InsertEvent(ctx, fileEvent(u.ID, 0, "api"))

	latest, err = db.LatestEvent(ctx, u.ID)
	if err != nil {
		t.Fatalf("LatestEvent() failed: %v", err)
	}
	if latest == nil || latest.Project != "web" {
		t.Errorf("LatestEvent() = %+v, want the web event", latest)
	}
}

func TestClose_Twice(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestOpen_PragmasOnEveryConnection(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Hold two connections at once so the pool has to open a second one.
	first, err := db.conn.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() failed: %v", err)
	}
	defer first.Close()
	second, err := db.conn.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() failed: %v", err)
	}
	defer second.Close()

	for i, c := range []*sql.Conn{first, second} {
		var timeout, fk int
		if err := c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("conn %d: busy_timeout query failed: %v", i, err)
		}
		if err := c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("conn %d: foreign_keys query failed: %v", i, err)
		}
		if timeout != 5000 {
			t.Errorf("conn %d: busy_timeout = %d, want 5000", i, timeout)
		}
		if fk != 1 {
			t.Errorf("conn %d: foreign_keys = %d, want 1", i, fk)
		}
	}

	var mode string
	if err := second.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode query failed: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}
