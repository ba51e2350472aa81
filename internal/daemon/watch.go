package daemon

import (
	"sync"
	"time"

	"github.com/timeforged/timeforged/internal/watcher"
	"github.com/timeforged/timeforged/internal/watchlist"
)

// watchControl edits the watch list file on behalf of the API. The
// reconciler notices each save and updates the live watches, so the API
// and the CLI take the same path. changed, when set, is called after every
// save so API callers do not wait on the file notification.
type watchControl struct {
	mu       sync.Mutex
	path     string
	registry *watcher.Registry
	now      func() time.Time
	changed  func()
}

func (c *watchControl) List() ([]watchlist.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := watchlist.Load(c.path)
	if err != nil {
		return nil, err
	}
	return list.Dirs, nil
}

func (c *watchControl) Watch(path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := watchlist.Load(c.path)
	if err != nil {
		return "", err
	}
	canonical, added, err := list.Add(path, c.now())
	if err != nil {
		return "", err
	}
	if added {
		if err := list.Save(c.path); err != nil {
			return "", err
		}
		c.notify()
	}
	return canonical, nil
}

func (c *watchControl) Unwatch(path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := watchlist.Load(c.path)
	if err != nil {
		return "", err
	}
	removed, err := list.Remove(path)
	if err != nil {
		return "", err
	}
	if err := list.Save(c.path); err != nil {
		return "", err
	}
	c.notify()
	return removed, nil
}

func (c *watchControl) notify() {
	if c.changed != nil {
		c.changed()
	}
}

func (c *watchControl) Root(path string) (string, bool) {
	return c.registry.Match(path)
}
