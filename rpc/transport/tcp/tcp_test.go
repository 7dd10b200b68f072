package tcp

import (
	"context"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func startEchoServer(t *testing.T, compression string) transport.IRPCServerTransport {
	srv := NewTCPServerTransport()
	srv.RegisterHandler(func(_ context.Context, req []byte) []byte {
		return append([]byte("echo:"), req...)
	})
	require.NoError(t, srv.Listen(common.ServerConfig{
		Endpoint:       "127.0.0.1:0",
		WorkersPerConn: 4,
		Compression:    compression,
	}))

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()
	t.Cleanup(func() {
		_ = srv.Close()
		select {
		case err := <-served:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Serve did not return after Close")
		}
	})
	return srv
}

func TestClientServerFrames(t *testing.T) {
	srv := startEchoServer(t, "")

	connector := NewTCPClientConnector()
	assert.Equal(t, "tcp", connector.GetName())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, err := connector.Connect(ctx, srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	cfg := common.DefaultConnectConfig()
	cfg.SendBufferSize = 64 * 1024
	cfg.RecvBufferSize = 64 * 1024
	require.NoError(t, connector.UpgradeConnection(conn, cfg))

	require.NoError(t, transport.WriteFrame(conn, []byte("ping")))

	reader := transport.NewFrameReader(conn, 0)
	resp, err := reader.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "echo:ping", string(resp))
}

func TestClientServerCompressed(t *testing.T) {
	srv := startEchoServer(t, "zstd")
	stages, err := transport.StagesFor("zstd", 0)
	require.NoError(t, err)

	conn, err := NewTCPClientConnector().Connect(context.Background(), srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	out, err := stages.Outbound([]byte("ping"))
	require.NoError(t, err)
	require.NoError(t, transport.WriteFrame(conn, out))

	frame, err := transport.NewFrameReader(conn, 0).ReadFrame()
	require.NoError(t, err)
	in, err := stages.Inbound(frame)
	require.NoError(t, err)
	assert.Equal(t, "echo:ping", string(in))
}

func TestConnectRefused(t *testing.T) {
	srv := NewTCPServerTransport()
	require.NoError(t, srv.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}))
	addr := srv.Addr()
	require.NoError(t, srv.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewTCPClientConnector().Connect(ctx, addr)
	assert.Error(t, err)
}
