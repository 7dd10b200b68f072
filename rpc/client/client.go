package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/ack"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/connect"
	"github.com/ValentinKolb/dRPC/rpc/host"
)

// NewRPCClient creates a new RPC client
// The function creates a connection manager for the local host and starts its
// reconnection workers. opts configure the collaborators of the manager.
//
// Usage:
//
//	c, err := client.NewRPCClient(local, common.DefaultConnectConfig())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	payload, err := c.Call(ctx, remote, "echo", "echo", []byte("hello"))
func NewRPCClient(local host.Host, config common.ConnectConfig, opts ...connect.Option) (*RPCClient, error) {
	m, err := connect.NewManager(local, config, opts...)
	if err != nil {
		return nil, err
	}
	m.Start()
	return &RPCClient{manager: m}, nil
}

// RPCClient builds requests with fresh ack ids and sends them over the connection
// manager. Hosts that are not connected yet are connected on demand.
type RPCClient struct {
	manager *connect.Manager
}

// Manager returns the underlying connection manager
func (c *RPCClient) Manager() *connect.Manager {
	return c.manager
}

// Call invokes service.method on h and waits for the response payload.
// Application errors of the peer are returned as *common.RemoteError.
func (c *RPCClient) Call(ctx context.Context, h host.Host, service, method string, payload []byte) ([]byte, error) {
	return c.Send(ctx, h, common.NewRequest(service, method, payload))
}

// Send invokes a prepared request on h and waits for the response payload
func (c *RPCClient) Send(ctx context.Context, h host.Host, req *common.Request) ([]byte, error) {
	inv, err := c.invoker(ctx, h)
	if err != nil {
		return nil, err
	}

	resp, err := inv.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	return unwrapResponse(req, resp)
}

// CallAsync invokes service.method on h without waiting for the response
func (c *RPCClient) CallAsync(ctx context.Context, h host.Host, service, method string, payload []byte) (*Pending, error) {
	req := common.NewRequest(service, method, payload)

	inv, err := c.invoker(ctx, h)
	if err != nil {
		return nil, err
	}

	f, err := inv.InvokeAsync(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Pending{req: req, future: f}, nil
}

// Close destroys the connection manager, pending calls fail with common.ErrConnectionClosed
func (c *RPCClient) Close() {
	c.manager.Destroy()
}

// invoker returns the live invoker of h and connects h if necessary
func (c *RPCClient) invoker(ctx context.Context, h host.Host) (*connect.Invoker, error) {
	if inv, ok := c.manager.Invoker(h); ok {
		return inv, nil
	}

	Logger.Debugf("connecting %s on demand", h)
	if err := c.manager.Connect(ctx, h); err != nil {
		return nil, err
	}

	// the connection may already be lost again
	inv, ok := c.manager.Invoker(h)
	if !ok {
		return nil, fmt.Errorf("call %s: %w", h, common.ErrNotConnected)
	}
	return inv, nil
}

// --------------------------------------------------------------------------
// Pending call
// --------------------------------------------------------------------------

// Pending is an asynchronous call
type Pending struct {
	req    *common.Request
	future *ack.Future
}

// Ack returns the acknowledgment id of the call
func (p *Pending) Ack() common.AckID {
	return p.req.Ack
}

// Done returns a channel that is closed once the call completed
func (p *Pending) Done() <-chan struct{} {
	return p.future.Done()
}

// Wait waits for the response payload. The request timeout of the connection applies
// as well as the deadline of ctx.
func (p *Pending) Wait(ctx context.Context) ([]byte, error) {
	resp, err := p.future.Get(ctx)
	if err != nil {
		return nil, err
	}
	return unwrapResponse(p.req, resp)
}
