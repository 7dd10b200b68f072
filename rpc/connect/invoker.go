package connect

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/ack"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// --------------------------------------------------------------------------
// Connection state
// --------------------------------------------------------------------------

type State int32

const (
	StateConnecting State = iota
	StateActive
	StateInactive
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	default:
		return "inactive"
	}
}

// --------------------------------------------------------------------------
// Invoker
// --------------------------------------------------------------------------

// Invoker is the handle of one established connection. It sends requests, delivers
// responses to their futures and owns the pending-request table of the connection.
// The table is only touched on the invoker's event loop. An invoker is single use:
// once inactive it never becomes active again.
type Invoker struct {
	manager  *Manager
	remote   host.Host
	conn     net.Conn
	reader   *transport.FrameReader
	pipeline transport.Pipeline
	loop     *EventLoop
	builder  *Builder

	table *ack.Table
	state atomic.Int32

	closeOnce   sync.Once
	releaseOnce sync.Once
	inactiveCh  chan struct{}
}

func newInvoker(m *Manager, remote host.Host, conn net.Conn, pipeline transport.Pipeline, loop *EventLoop, b *Builder) *Invoker {
	inv := &Invoker{
		manager:    m,
		remote:     remote,
		conn:       conn,
		reader:     transport.NewFrameReader(conn, m.config.MaxFrameLength),
		pipeline:   pipeline,
		loop:       loop,
		builder:    b,
		inactiveCh: make(chan struct{}),
	}
	inv.state.Store(int32(StateConnecting))
	return inv
}

// Host returns the remote host
func (inv *Invoker) Host() host.Host { return inv.remote }

// State returns the current connection state
func (inv *Invoker) State() State { return State(inv.state.Load()) }

// Loop returns the event loop of the connection
func (inv *Invoker) Loop() *EventLoop { return inv.loop }

// Inactive returns a channel that is closed once the connection went inactive
func (inv *Invoker) Inactive() <-chan struct{} { return inv.inactiveCh }

func (inv *Invoker) String() string {
	return fmt.Sprintf("invoker[%s %s]", inv.remote, inv.State())
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// active installs a fresh pending-request table and starts reading responses
func (inv *Invoker) active() {
	inv.table = ack.NewTable()
	if !inv.state.CompareAndSwap(int32(StateConnecting), int32(StateActive)) {
		return
	}
	Logger.Debugf("connection to %s (%s) active on %s", inv.remote, inv.conn.RemoteAddr(), inv.loop)
	go inv.readLoop()
}

// Close closes the connection. Closing triggers the inactive handling exactly once.
func (inv *Invoker) Close() error {
	return inv.close(context.Background())
}

// close closes the connection, ctx tells whether the caller runs on the invoker's loop
func (inv *Invoker) close(ctx context.Context) error {
	var err error
	inv.closeOnce.Do(func() {
		err = inv.conn.Close()
		inv.inactive(ctx)
	})
	return err
}

// inactive fails all pending requests and dispatches the deregistration of the
// connection to the release pool
func (inv *Invoker) inactive(ctx context.Context) {
	previous := State(inv.state.Swap(int32(StateInactive)))
	close(inv.inactiveCh)

	if previous == StateActive {
		drain := func(context.Context) { inv.failPending() }
		if err := inv.loop.Execute(ctx, drain); err != nil {
			// the loop is gone, nothing else touches the table anymore
			inv.failPending()
		}
	}

	inv.manager.dispatchRelease(func() {
		inv.manager.deregister(inv)
		inv.release()
	})
}

// failPending resolves all pending futures with an error (runs on the loop)
func (inv *Invoker) failPending() {
	if inv.table == nil {
		return
	}
	pending := inv.table.Drain()
	if len(pending) == 0 {
		return
	}
	Logger.Debugf("connection to %s inactive, failing %d pending requests", inv.remote, len(pending))
	for _, f := range pending {
		f.Fail(fmt.Errorf("request %s to %s: %w", f.Ack(), inv.remote, common.ErrConnectionClosed))
	}
}

// release releases the resources of the connection (a private event loop group).
// It is never executed on the invoker's own loop.
func (inv *Invoker) release() {
	inv.releaseOnce.Do(func() {
		inv.builder.release()
	})
}

// exceptionCaught logs err and closes the connection. Framework errors are logged
// at error level, everything else (network noise) at debug level.
func (inv *Invoker) exceptionCaught(ctx context.Context, err error) {
	switch {
	case common.IsFrameworkError(err):
		Logger.Errorf("connection to %s: %v", inv.remote, err)
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		Logger.Debugf("connection to %s closed: %v", inv.remote, err)
	default:
		Logger.Debugf("connection to %s: %v", inv.remote, err)
	}
	_ = inv.close(ctx)
}

// --------------------------------------------------------------------------
// Inbound
// --------------------------------------------------------------------------

// readLoop reads frames and hands them to the event loop
func (inv *Invoker) readLoop() {
	for {
		frame, err := inv.reader.ReadFrame()
		if err != nil {
			inv.exceptionCaught(context.Background(), err)
			return
		}

		read := func(ctx context.Context) { inv.channelRead(ctx, frame) }
		if err := inv.loop.Execute(context.Background(), read); err != nil {
			inv.exceptionCaught(context.Background(), err)
			return
		}
	}
}

// channelRead decodes a response and resolves the matching future (runs on the loop)
func (inv *Invoker) channelRead(ctx context.Context, frame []byte) {
	data, err := inv.pipeline.Inbound(frame)
	if err != nil {
		inv.exceptionCaught(ctx, common.NewFrameworkError("inbound", err))
		return
	}

	resp, err := inv.manager.codec.Decode(data)
	if err != nil {
		inv.exceptionCaught(ctx, err)
		return
	}

	f := inv.table.Remove(resp.Ack)
	if f == nil {
		Logger.Warningf("missing ack %s from %s, request may have timed out", resp.Ack, inv.remote)
		return
	}
	f.Resolve(resp)
}

// --------------------------------------------------------------------------
// Outbound
// --------------------------------------------------------------------------

// Invoke sends req and blocks until the response arrives, the request times out or
// ctx is done. It must not be called on the invoker's own event loop.
func (inv *Invoker) Invoke(ctx context.Context, req *common.Request) (*common.Response, error) {
	if InEventLoop(ctx, inv.loop) {
		return nil, common.NewFrameworkError("invoke", common.ErrBlockingInEventLoop)
	}
	f, err := inv.send(ctx, req)
	if err != nil {
		return nil, err
	}
	return f.Get(ctx)
}

// InvokeAsync sends req and returns the pending future without waiting
func (inv *Invoker) InvokeAsync(ctx context.Context, req *common.Request) (*ack.Future, error) {
	return inv.send(ctx, req)
}

func (inv *Invoker) send(ctx context.Context, req *common.Request) (*ack.Future, error) {
	if inv.State() != StateActive {
		return nil, fmt.Errorf("send to %s: %w", inv.remote, common.ErrConnectionClosed)
	}

	m := inv.manager
	req = m.token.Set(req, inv)
	f := ack.NewFuture(req, m.local, inv.remote, m.config.RequestTimeout(), m.collector)
	f.SetWaitFailureHook(inv.cleanup)

	buf, err := m.codec.Encode(req)
	if err != nil {
		return nil, err
	}
	if buf, err = inv.pipeline.Outbound(buf); err != nil {
		return nil, fmt.Errorf("send to %s: %w", inv.remote, err)
	}
	if m.config.MaxFrameLength > 0 && len(buf) > m.config.MaxFrameLength {
		return nil, fmt.Errorf("send to %s: %w: %d bytes (max %d)", inv.remote, common.ErrFrameTooLarge, len(buf), m.config.MaxFrameLength)
	}

	write := func(ctx context.Context) { inv.write(ctx, f, buf) }
	if err := inv.loop.Execute(ctx, write); err != nil {
		err = fmt.Errorf("send to %s: %w: %w", inv.remote, common.ErrConnectionClosed, err)
		f.Fail(err)
		return nil, err
	}
	return f, nil
}

// write registers f in the pending-request table and writes the frame (runs on the loop)
func (inv *Invoker) write(ctx context.Context, f *ack.Future, buf []byte) {
	select {
	case <-f.Done():
		// failed or cancelled while queued
		return
	default:
	}

	if inv.State() != StateActive {
		f.Fail(fmt.Errorf("write to %s: %w", inv.remote, common.ErrConnectionClosed))
		return
	}

	if err := inv.table.Put(f); err != nil {
		Logger.Errorf("request %s to %s rejected: %v", f.Ack(), inv.remote, err)
		f.Fail(err)
		return
	}
	f.StartDeadline()

	if timeout := inv.manager.config.WriteTimeout(); timeout > 0 {
		_ = inv.conn.SetWriteDeadline(time.Now().Add(timeout))
	}

	if err := transport.WriteFrame(inv.conn, buf); err != nil {
		inv.table.RemoveIf(f)
		f.Fail(fmt.Errorf("write to %s: %w: %w", inv.remote, common.ErrConnectionClosed, err))
		inv.exceptionCaught(ctx, err)
	}
}

// cleanup runs once if waiting for f failed. It removes f from the pending-request
// table on the loop and notifies the timeout policy if the request timed out.
func (inv *Invoker) cleanup(f *ack.Future, err error) {
	remove := func(context.Context) {
		if inv.table != nil {
			inv.table.RemoveIf(f)
		}
	}
	if execErr := inv.loop.Execute(context.Background(), remove); execErr != nil {
		Logger.Debugf("cleanup of %s skipped: %v", f.Ack(), execErr)
	}

	if errors.Is(err, common.ErrTimeout) {
		m := inv.manager
		m.policy.Timeout(inv, f, m.collector.Peek(f).Timeout())
	}
}

// Pending returns the number of outstanding requests. The count is taken on the loop,
// after all previously queued tasks of the loop ran.
func (inv *Invoker) Pending() int {
	result := make(chan int, 1)
	count := func(context.Context) {
		if inv.table == nil {
			result <- 0
			return
		}
		result <- inv.table.Len()
	}
	if err := inv.loop.Execute(context.Background(), count); err != nil {
		return 0
	}
	return <-result
}
