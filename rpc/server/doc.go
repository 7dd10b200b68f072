// Package server implements the peer side of dRPC: a request dispatcher on top of a
// frame server transport.
//
// Every received frame is decoded into a common.Request, dispatched to the HandlerFunc
// registered for "service.method" and answered with a common.Response carrying the
// same ack id. Handler errors (including unknown methods and panics) are sent back as
// the Err field of the response, the client turns them into a common.RemoteError.
// Frames that can not be decoded are dropped.
//
// Key Components:
//
//   - IRPCServer: Interface of the dispatcher (Register, Listen, Serve, Addr, Close).
//
//   - NewRPCServer: Factory function creating a server with the specified transport
//     and serializer. The serializer must match the one of the connecting clients.
//
//   - Echo, Sleep: Built-in handlers used by the serve command and the tests.
//
// Usage Example:
//
//	s := server.NewRPCServer(
//	  common.ServerConfig{Endpoint: "0.0.0.0:8080", TimeoutSecond: 5, WorkersPerConn: 16},
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//	server.RegisterBuiltins(s)
//
//	if err := s.ListenAndServe(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Handlers run concurrently (up to WorkersPerConn per connection) and must be safe
//	for concurrent use. Register may be called while serving.
package server
