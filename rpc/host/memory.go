package host

import (
	"context"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
	"time"
)

// --------------------------------------------------------------------------
// Host state
// --------------------------------------------------------------------------

type State int

const (
	StateUnknown State = iota
	StateActive
	StateBanned
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// In-memory host directory and work queue
// --------------------------------------------------------------------------

// MemoryDirectory is a process local host directory. It implements IHostDirectory,
// IHostQueue and IHostRegistry. A banned host is re-enqueued after RetryDelay as long
// as it is registered.
type MemoryDirectory struct {
	retryDelay   time.Duration
	pollInterval time.Duration

	registered *xsync.MapOf[Host, struct{}]
	states     *xsync.MapOf[Host, State]

	mu     sync.Mutex
	queue  []Host
	queued map[Host]struct{}
	notify chan struct{}
}

// NewMemoryDirectory creates a new in-memory directory. retryDelay is the pause between a
// ban and the re-enqueue of the host, pollInterval bounds how long Get blocks when idle.
func NewMemoryDirectory(retryDelay, pollInterval time.Duration) *MemoryDirectory {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &MemoryDirectory{
		retryDelay:   retryDelay,
		pollInterval: pollInterval,
		registered:   xsync.NewMapOf[Host, struct{}](),
		states:       xsync.NewMapOf[Host, State](),
		queued:       make(map[Host]struct{}),
		notify:       make(chan struct{}, 1),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see interface.go)
// --------------------------------------------------------------------------

func (d *MemoryDirectory) Register(_ context.Context, h Host) error {
	d.registered.Store(h, struct{}{})
	d.enqueue(h)
	return nil
}

func (d *MemoryDirectory) Deregister(_ context.Context, h Host) error {
	d.registered.Delete(h)
	d.states.Delete(h)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.queued[h]; ok {
		delete(d.queued, h)
		for i, q := range d.queue {
			if q == h {
				d.queue = append(d.queue[:i], d.queue[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (d *MemoryDirectory) Ban(h Host) {
	d.states.Store(h, StateBanned)

	if _, ok := d.registered.Load(h); !ok {
		Logger.Debugf("host %s banned but not registered, not retrying", h)
		return
	}

	if d.retryDelay <= 0 {
		d.enqueue(h)
		return
	}
	time.AfterFunc(d.retryDelay, func() {
		// the host may have been deregistered or reconnected in the meantime
		if _, ok := d.registered.Load(h); !ok {
			return
		}
		if s, _ := d.states.Load(h); s == StateActive {
			return
		}
		d.enqueue(h)
	})
}

func (d *MemoryDirectory) Active(h Host) {
	d.states.Store(h, StateActive)
}

func (d *MemoryDirectory) Get(ctx context.Context) (*Host, error) {
	timer := time.NewTimer(d.pollInterval)
	defer timer.Stop()

	for {
		if h, ok := d.pop(); ok {
			return &h, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-timer.C:
			return nil, nil
		case <-d.notify:
		}
	}
}

// --------------------------------------------------------------------------
// State queries
// --------------------------------------------------------------------------

// Status returns the last known state of the host
func (d *MemoryDirectory) Status(h Host) State {
	s, _ := d.states.Load(h)
	return s
}

// Banned returns all hosts that are currently banned
func (d *MemoryDirectory) Banned() []Host {
	var hosts []Host
	d.states.Range(func(h Host, s State) bool {
		if s == StateBanned {
			hosts = append(hosts, h)
		}
		return true
	})
	return hosts
}

// Registered returns all registered hosts
func (d *MemoryDirectory) Registered() []Host {
	var hosts []Host
	d.registered.Range(func(h Host, _ struct{}) bool {
		hosts = append(hosts, h)
		return true
	})
	return hosts
}

// Pending returns the number of queued hosts
func (d *MemoryDirectory) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// enqueue adds the host to the queue unless it is already queued
func (d *MemoryDirectory) enqueue(h Host) {
	d.mu.Lock()
	if _, ok := d.queued[h]; ok {
		d.mu.Unlock()
		return
	}
	d.queued[h] = struct{}{}
	d.queue = append(d.queue, h)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *MemoryDirectory) pop() (Host, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return Host{}, false
	}
	h := d.queue[0]
	d.queue = d.queue[1:]
	delete(d.queued, h)
	return h, true
}
