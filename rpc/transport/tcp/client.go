package tcp

import (
	"context"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"net"
	"time"
)

const defaultKeepAlive = 30 * time.Second

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct {
	dialer net.Dialer
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(ctx context.Context, address string) (net.Conn, error) {
	return c.dialer.DialContext(ctx, "tcp", address)
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ConnectConfig) error {
	return upgradeConnection(conn, socketOptions{
		noDelay:         true,
		writeBufferSize: config.SendBufferSize,
		readBufferSize:  config.RecvBufferSize,
		keepAlive:       defaultKeepAlive,
	})
}

// --------------------------------------------------------------------------
// Client Connector Factory Method
// --------------------------------------------------------------------------

// NewTCPClientConnector creates a new TCP client connector
func NewTCPClientConnector() transport.IClientConnector {
	return &clientConnector{}
}
