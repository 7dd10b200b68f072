// Package tcp implements the TCP transport of dRPC.
//
// Key Components:
//
//   - clientConnector: TCP implementation of transport.IClientConnector. Dials with
//     a context bounded connect timeout and applies the socket options of the
//     connect configuration (send/receive buffers, no-delay, keep-alive).
//
//   - serverConnector: TCP implementation of base.IServerConnector, used by the
//     frame server of the peer side.
package tcp
