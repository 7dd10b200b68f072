package server

import (
	"context"
	"github.com/ValentinKolb/dRPC/rpc/common"
)

// HandlerFunc handles one request of a registered service method. The returned payload
// is sent back to the caller, a returned error is sent back as remote error message.
// ctx is cancelled when the handler timeout of the server expires.
type HandlerFunc func(ctx context.Context, req *common.Request) ([]byte, error)

// IRPCServer is the interface of the peer side request dispatcher
type IRPCServer interface {
	// Register registers the handler for service.method, an existing handler is replaced
	Register(service, method string, handler HandlerFunc)
	// Listen binds the server to the configured endpoint
	Listen() error
	// Serve handles connections until Close is called
	Serve() error
	// Addr returns the bound address (valid after Listen)
	Addr() string
	// Close stops the server and closes all connections
	Close() error
}
