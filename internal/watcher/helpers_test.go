package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/timeforged/timeforged/internal/activity"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memorySink records inserted events in memory.
type memorySink struct {
	mu     sync.Mutex
	events []*activity.Event
	err    error
}

func (s *memorySink) InsertEvent(_ context.Context, ev *activity.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.events = append(s.events, ev)
	return int64(len(s.events)), nil
}

func (s *memorySink) Events() []*activity.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*activity.Event(nil), s.events...)
}

// noBranch is a BranchLookup that never finds a repository.
func noBranch(context.Context, string) (string, error) {
	return "", errors.New("not a git repository")
}
