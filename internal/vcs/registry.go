package vcs

import (
	"fmt"
	"sync"
)

// Constructor creates a VCS handle for a repository root.
type Constructor func(repoRoot string) (VCS, error)

var (
	registry      = make(map[Type]Constructor)
	registryMutex sync.RWMutex
)

// Register makes a backend available to GetForPath. It is called from
// init() in the backend packages:
//
//	func init() {
//	    vcs.Register(vcs.TypeGit, New)
//	}
//
// Registering nil or registering a type twice panics.
func Register(t Type, constructor Constructor) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if constructor == nil {
		panic(fmt.Sprintf("vcs: Register constructor is nil for type %s", t))
	}
	if _, exists := registry[t]; exists {
		panic(fmt.Sprintf("vcs: Register called twice for type %s", t))
	}
	registry[t] = constructor
}

func getConstructor(t Type) Constructor {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	return registry[t]
}

// IsRegistered reports whether a backend is registered for t.
func IsRegistered(t Type) bool {
	return getConstructor(t) != nil
}
