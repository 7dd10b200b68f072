package connect

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"sync"
	"sync/atomic"
)

const eventLoopQueueSize = 1024

// Task is a unit of work executed on an event loop. ctx identifies the loop (see InEventLoop).
type Task func(ctx context.Context)

type loopKey struct{}

// --------------------------------------------------------------------------
// Event loop
// --------------------------------------------------------------------------

// EventLoop is a single goroutine draining a task queue. All pending-request table
// mutations and all writes of a connection run on the connection's event loop.
type EventLoop struct {
	id    int
	group *EventLoopGroup
	tasks chan Task
	ctx   context.Context
}

// InEventLoop reports whether ctx belongs to a task running on loop
func InEventLoop(ctx context.Context, loop *EventLoop) bool {
	if ctx == nil || loop == nil {
		return false
	}
	current, _ := ctx.Value(loopKey{}).(*EventLoop)
	return current == loop
}

// Execute runs task on the loop. If ctx already belongs to the loop the task runs
// inline, otherwise it is queued. Returns common.ErrShutdown if the group was shut down.
func (l *EventLoop) Execute(ctx context.Context, task Task) error {
	if InEventLoop(ctx, l) {
		l.safeRun(task)
		return nil
	}

	l.group.mu.RLock()
	defer l.group.mu.RUnlock()
	if l.group.closed {
		return fmt.Errorf("event loop %s: %w", l, common.ErrShutdown)
	}
	l.tasks <- task
	return nil
}

func (l *EventLoop) String() string {
	return fmt.Sprintf("%s-%d", l.group.name, l.id)
}

func (l *EventLoop) run() {
	for task := range l.tasks {
		l.safeRun(task)
	}
}

func (l *EventLoop) safeRun(task Task) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("panic in event loop %s: %v", l, r)
		}
	}()
	task(l.ctx)
}

// --------------------------------------------------------------------------
// Event loop group
// --------------------------------------------------------------------------

// EventLoopGroup owns a fixed number of event loops, connections are assigned round robin
type EventLoopGroup struct {
	name  string
	loops []*EventLoop
	next  atomic.Uint64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewEventLoopGroup creates and starts a group with size loops (at least one)
func NewEventLoopGroup(name string, size int) *EventLoopGroup {
	size = max(size, 1)
	g := &EventLoopGroup{name: name, loops: make([]*EventLoop, size)}
	for i := range g.loops {
		l := &EventLoop{
			id:    i,
			group: g,
			tasks: make(chan Task, eventLoopQueueSize),
		}
		l.ctx = context.WithValue(context.Background(), loopKey{}, l)
		g.loops[i] = l

		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			l.run()
		}()
	}
	return g
}

// Next returns the next loop (round robin)
func (g *EventLoopGroup) Next() *EventLoop {
	return g.loops[(g.next.Add(1)-1)%uint64(len(g.loops))]
}

// Size returns the number of loops
func (g *EventLoopGroup) Size() int {
	return len(g.loops)
}

// ShutdownGracefully stops accepting tasks, lets the loops drain their queued tasks
// and waits for them to exit. It must not be called from one of the group's loops.
func (g *EventLoopGroup) ShutdownGracefully() {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		for _, l := range g.loops {
			close(l.tasks)
		}
	}
	g.mu.Unlock()
	g.wg.Wait()
}

// IsShutdown reports whether ShutdownGracefully was called
func (g *EventLoopGroup) IsShutdown() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closed
}
