// Package client implements the caller-facing RPC client of dRPC.
// It wraps a connect.Manager and turns service.method calls into requests with
// fresh acknowledgment ids.
//
// The package focuses on:
//   - Connecting hosts on demand (the manager keeps reconnecting them afterwards)
//   - Blocking (Call) and asynchronous (CallAsync) invocations
//   - Error handling and conversion between response and Go errors
//
// Key Components:
//
//   - NewRPCClient: Factory function that creates a client together with its
//     connection manager and starts the reconnection workers.
//
//   - Pending: Handle of an asynchronous call, Wait returns the payload.
//
// Errors:
//
//   - common.ErrTimeout (via errors.Is) if the request timed out.
//   - common.ErrConnectionClosed if the connection was lost while the call was pending.
//   - *common.RemoteError if the peer handler returned an error.
//   - common.ErrShutdown after Close.
//
// Usage Example:
//
//	c, _ := client.NewRPCClient(host.New("10.0.0.1", 0, ""), common.DefaultConnectConfig())
//	defer c.Close()
//
//	remote := host.New("10.0.0.2", 8080, "")
//	payload, err := c.Call(ctx, remote, "echo", "echo", []byte("hello"))
//
//	p, _ := c.CallAsync(ctx, remote, "echo", "echo", []byte("later"))
//	payload, err = p.Wait(ctx)
//
// Thread Safety:
//
//	The client is thread-safe and can be used concurrently from multiple goroutines.
//	Calls must not be made from an event loop task of the connection they use.
package client
