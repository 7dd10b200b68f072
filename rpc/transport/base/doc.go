// Package base provides the protocol independent frame server of the peer side.
// It accepts connections through an IServerConnector, reads length prefixed
// frames and processes them concurrently with a bounded number of workers per
// connection. Responses are written back under a per-connection mutex.
//
// Thread Safety:
//
//	The server creates a dedicated goroutine for each connection and up to
//	WorkersPerConn handler goroutines per connection. Close may be called from
//	any goroutine.
package base
