package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/timeforged/timeforged/internal/activity"
)

// TestConcurrentWritersAndReaders mirrors the daemon's access pattern:
// several enrichment workers appending while report requests read.
func TestConcurrentWritersAndReaders(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	db := openTestDB(t)
	user := newUser(t, db, "load")
	ctx := context.Background()

	const (
		writers         = 4
		eventsPerWriter = 50
		readers         = 8
		queriesPerRead  = 20
	)

	var wg sync.WaitGroup
	errs := make(chan error, writers+readers)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			for i := 0; i < eventsPerWriter; i++ {
				offset := time.Duration(writer*eventsPerWriter+i) * time.Second
				ev := fileEvent(user.ID, offset, fmt.Sprintf("p%d", writer))
				if _, err := db.InsertEvent(ctx, ev); err != nil {
					errs <- fmt.Errorf("writer %d event %d: %w", writer, i, err)
					return
				}
			}
		}(w)
	}

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func(reader int) {
			defer wg.Done()
			q := activity.Query{UserID: user.ID, From: base, To: base.Add(time.Hour)}
			for i := 0; i < queriesPerRead; i++ {
				if _, err := db.QueryEvents(ctx, q); err != nil {
					errs <- fmt.Errorf("reader %d query %d: %w", reader, i, err)
					return
				}
			}
		}(r)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	n, err := db.CountEvents(ctx, user.ID)
	if err != nil {
		t.Fatalf("CountEvents() failed: %v", err)
	}
	if n != writers*eventsPerWriter {
		t.Errorf("CountEvents() = %d, want %d", n, writers*eventsPerWriter)
	}

	events, err := db.QueryEvents(ctx, activity.Query{UserID: user.ID, From: base, To: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("QueryEvents() failed: %v", err)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Fatalf("events out of order at %d: %v before %v", i, events[i].Timestamp, events[i-1].Timestamp)
		}
	}
}

func BenchmarkQueryEvents(b *testing.B) {
	db, err := Open(b.TempDir() + "/bench.db")
	if err != nil {
		b.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()
	if err := db.InitSchema(); err != nil {
		b.Fatalf("InitSchema() failed: %v", err)
	}
	ctx := context.Background()
	user, err := db.EnsureUser(ctx, "bench")
	if err != nil {
		b.Fatalf("EnsureUser() failed: %v", err)
	}

	// A busy week: one event every 30s for 8 hours a day.
	var batch []*activity.Event
	for day := 0; day < 7; day++ {
		for i := 0; i < 8*120; i++ {
			offset := time.Duration(day)*24*time.Hour + time.Duration(i)*30*time.Second
			batch = append(batch, fileEvent(user.ID, offset, fmt.Sprintf("p%d", i%5)))
			if len(batch) == MaxBatchSize {
				if _, err := db.InsertBatch(ctx, batch); err != nil {
					b.Fatalf("InsertBatch() failed: %v", err)
				}
				batch = batch[:0]
			}
		}
	}
	if len(batch) > 0 {
		if _, err := db.InsertBatch(ctx, batch); err != nil {
			b.Fatalf("InsertBatch() failed: %v", err)
		}
	}

	q := activity.Query{UserID: user.ID, From: base, To: base.AddDate(0, 0, 7)}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := db.QueryEvents(ctx, q); err != nil {
			b.Fatalf("QueryEvents() failed: %v", err)
		}
	}
}
