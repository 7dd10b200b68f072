// Package common provides the data structures and utilities shared by all dRPC
// packages: the protocol elements carried over a connection, the configuration
// structures and the error kinds of the framework.
//
// Key Components:
//
//   - AckID: fixed length binary correlation key. A request carries it and the
//     matching response echoes it. AckIDs compare by content and are used
//     directly as map keys.
//
//   - Request / Response: the messages carried by the transport. The payload of
//     both is opaque to the transport.
//
//   - ConnectConfig: configuration of the client side connection manager
//     (timeouts, framing, event loops, reconnection workers).
//
//   - ServerConfig: configuration of the peer side frame server.
//
//   - Errors: sentinel error kinds (ErrTimeout, ErrConnectionClosed, ...),
//     FrameworkError for framework internal failures and RemoteError for
//     application errors returned by the peer.
//
//   - Logger: custom logging implementation that plugs into dragonboats logger
//     package and gives all dRPC loggers a consistent format.
package common
