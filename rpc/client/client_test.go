package client

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/ValentinKolb/dRPC/rpc/serializer"
	"github.com/ValentinKolb/dRPC/rpc/server"
	"github.com/ValentinKolb/dRPC/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func startServer(t *testing.T) host.Host {
	s := server.NewRPCServer(common.ServerConfig{
		Endpoint:       "127.0.0.1:0",
		TimeoutSecond:  5,
		WorkersPerConn: 8,
	}, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
	server.RegisterBuiltins(s)
	s.Register("test", "fail", func(context.Context, *common.Request) ([]byte, error) {
		return nil, errors.New("not today")
	})
	require.NoError(t, s.Listen())
	go func() { _ = s.Serve() }()
	t.Cleanup(func() { _ = s.Close() })

	h, err := host.Parse(s.Addr(), "")
	require.NoError(t, err)
	return h
}

func newClient(t *testing.T) *RPCClient {
	cfg := common.DefaultConnectConfig()
	cfg.RequestTimeoutMillis = 300
	cfg.EventLoopWorkers = 2
	c, err := NewRPCClient(host.New("127.0.0.1", 0, ""), cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCallConnectsOnDemand(t *testing.T) {
	h := startServer(t)
	c := newClient(t)
	ctx := context.Background()

	assert.False(t, c.Manager().Connected(h))
	payload, err := c.Call(ctx, h, server.EchoService, server.EchoMethod, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))
	assert.True(t, c.Manager().Connected(h))
}

func TestCallRemoteError(t *testing.T) {
	h := startServer(t)
	c := newClient(t)

	_, err := c.Call(context.Background(), h, "test", "fail", nil)
	var remote *common.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "test.fail", remote.Name)
	assert.Equal(t, "not today", remote.Message)
}

func TestCallTimeout(t *testing.T) {
	h := startServer(t)
	c := newClient(t)

	_, err := c.Call(context.Background(), h, server.EchoService, server.SleepMethod, []byte("1s"))
	assert.ErrorIs(t, err, common.ErrTimeout)
}

func TestCallAsync(t *testing.T) {
	h := startServer(t)
	c := newClient(t)
	ctx := context.Background()

	pending := make([]*Pending, 20)
	for i := range pending {
		p, err := c.CallAsync(ctx, h, server.EchoService, server.EchoMethod, []byte{byte(i)})
		require.NoError(t, err)
		pending[i] = p
	}

	seen := map[common.AckID]bool{}
	for i, p := range pending {
		assert.False(t, seen[p.Ack()])
		seen[p.Ack()] = true

		payload, err := p.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, payload)
	}
}

func TestCallUnreachableHost(t *testing.T) {
	c := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Call(ctx, host.New("127.0.0.1", 1, ""), server.EchoService, server.EchoMethod, nil)
	assert.Error(t, err)
}

func TestCallAfterClose(t *testing.T) {
	h := startServer(t)
	c := newClient(t)
	c.Close()

	_, err := c.Call(context.Background(), h, server.EchoService, server.EchoMethod, nil)
	assert.ErrorIs(t, err, common.ErrShutdown)
}
