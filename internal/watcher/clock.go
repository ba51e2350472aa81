package watcher

import "time"

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
