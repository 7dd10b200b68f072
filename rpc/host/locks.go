package host

import (
	"github.com/zeebo/xxh3"
	"sync"
)

// Locks is a fixed size table of mutexes indexed by the hash of a host.
// The same host always maps to the same mutex, different hosts rarely contend.
type Locks struct {
	segments []sync.Mutex
}

// NewLocks creates a lock table with the given number of segments (at least one)
func NewLocks(segments int) *Locks {
	if segments < 1 {
		segments = 1
	}
	return &Locks{segments: make([]sync.Mutex, segments)}
}

// Get returns the mutex responsible for h
func (l *Locks) Get(h Host) *sync.Mutex {
	return &l.segments[l.index(h)]
}

func (l *Locks) index(h Host) uint64 {
	return xxh3.HashString(h.String()) % uint64(len(l.segments))
}

// Size returns the number of segments
func (l *Locks) Size() int {
	return len(l.segments)
}
