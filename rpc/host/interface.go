package host

import "context"

// IHostDirectory receives the state transitions of hosts from the connection manager.
// Both methods are idempotent.
type IHostDirectory interface {
	// Ban marks the host as needing reconnection
	Ban(h Host)
	// Active marks the host as connected, its services may be used
	Active(h Host)
}

// IHostQueue is the work queue of the reconnection scheduler
type IHostQueue interface {
	// Get returns the next host that needs (re)connection. It may block until ctx is
	// done. A nil host with a nil error means that no work is currently available.
	Get(ctx context.Context) (*Host, error)
}

// IHostRegistry controls the set of hosts that should be connected. Only registered
// hosts are re-enqueued after a ban.
type IHostRegistry interface {
	Register(ctx context.Context, h Host) error
	Deregister(ctx context.Context, h Host) error
}
