// Package connect implements the client side connection management of dRPC.
//
// A Manager keeps at most one live connection per remote host. Each connection is
// represented by an Invoker that is bound to one EventLoop: all writes and all
// mutations of the connection's pending-request table run on that loop, so the
// table needs no locking. Responses are read by a dedicated goroutine and handed to
// the loop, where they resolve the matching ack.Future.
//
// Key Components:
//
//   - Manager: Entry point. Connect establishes a connection (serialized per host by
//     striped host locks), Invoke and InvokeAsync send requests, Start runs the
//     reconnection workers and Destroy shuts everything down.
//
//   - Invoker: Handle of one connection. Its lifecycle is connecting, active, inactive.
//     Going inactive fails all pending requests with common.ErrConnectionClosed,
//     removes the invoker from the Registry and bans the host in the IHostDirectory.
//
//   - EventLoop / EventLoopGroup: Single goroutine task queues. Connections are
//     assigned round robin to the loops of a shared group or of a private group.
//
//   - Builder: Assembles one connection (dial, socket options, pipeline stages).
//
//   - Registry: Host to invoker map, the source of truth for Connected.
//
// Reconnection:
//
//	Hosts are pulled from an IHostQueue by EstablishWorkers goroutines. A failing
//	attempt bans the host again; the directory decides when it is retried. The
//	default directory is an in-memory host.MemoryDirectory.
//
// Timeouts:
//
//	A request that timed out is removed from the pending-request table and the
//	ITimeoutPolicy is notified with the cumulative timeout count of its ack id.
//	A response that arrives after the timeout is dropped with a warning.
//
// Usage Example:
//
//	m, err := connect.NewManager(local, common.DefaultConnectConfig())
//	if err != nil {
//	  return err
//	}
//	defer m.Destroy()
//	m.Start()
//
//	if err := m.Connect(ctx, remote); err != nil {
//	  return err
//	}
//	resp, err := m.Invoke(ctx, remote, common.NewRequest("echo", "echo", []byte("hi")))
package connect
