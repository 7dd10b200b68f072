package transport

import (
	"context"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"net"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles one inbound frame and returns the frame to send back.
// A nil response sends nothing.
type ServerHandleFunc func(ctx context.Context, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the peer side transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the handler that is called for every received frame
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds the transport to the endpoint of the config
	Listen(config common.ServerConfig) error
	// Serve accepts connections until Close is called
	Serve() error
	// Addr returns the bound address (valid after Listen)
	Addr() string
	// Close stops accepting connections and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Connector
// --------------------------------------------------------------------------

// IClientConnector defines the transport specific connection operations of the client
type IClientConnector interface {
	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string
	// Connect establishes a single connection to address. ctx bounds the connect attempt.
	Connect(ctx context.Context, address string) (net.Conn, error)
	// UpgradeConnection applies protocol specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ConnectConfig) error
}
