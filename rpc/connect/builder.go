package connect

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/ValentinKolb/dRPC/rpc/transport"
)

// Builder assembles one connection: it dials through the connector, applies the socket
// options, appends the pipeline stages and creates the invoker on a loop of its group.
// A builder serves a single connection attempt.
type Builder struct {
	manager *Manager
	group   *EventLoopGroup
	private bool
	stages  transport.Pipeline
}

// newBuilder creates a builder on the shared group of the manager, or on a private
// group if the manager has none
func newBuilder(m *Manager, h host.Host) *Builder {
	b := &Builder{manager: m, group: m.shared}
	if b.group == nil {
		b.group = NewEventLoopGroup("loop-"+h.String(), m.config.EventLoopWorkers)
		b.private = true
	}
	return b
}

// Add appends stages to the pipeline of the connection
func (b *Builder) Add(stages ...transport.IStage) *Builder {
	b.stages = append(b.stages, stages...)
	return b
}

// Connect dials address (bounded by the connect timeout) and returns an invoker
// for the remote host in the connecting state
func (b *Builder) Connect(ctx context.Context, remote host.Host, address string) (*Invoker, error) {
	cfg := b.manager.config
	connector := b.manager.connector

	dialCtx := ctx
	if cfg.ConnectTimeoutMillis > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout())
		defer cancel()
	}

	conn, err := connector.Connect(dialCtx, address)
	if err != nil {
		return nil, fmt.Errorf("connect to %s via %s (%s): %w", remote, address, connector.GetName(), err)
	}

	if err := connector.UpgradeConnection(conn, cfg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("upgrade connection to %s: %w", remote, err)
	}

	return newInvoker(b.manager, remote, conn, b.stages, b.group.Next(), b), nil
}

// release shuts a private group down, the shared group is owned by the manager.
// It must not run on one of the group's loops.
func (b *Builder) release() {
	if b.private {
		b.group.ShutdownGracefully()
	}
}
