package server

import (
	"context"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/serializer"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/ValentinKolb/dRPC/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"testing"
	"time"
)

func startServer(t *testing.T) *RPCServer {
	s := NewRPCServer(common.ServerConfig{
		Endpoint:       "127.0.0.1:0",
		TimeoutSecond:  1,
		WorkersPerConn: 4,
	}, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
	RegisterBuiltins(s)
	s.Register("test", "fail", func(context.Context, *common.Request) ([]byte, error) {
		return nil, assert.AnError
	})
	s.Register("test", "panic", func(context.Context, *common.Request) ([]byte, error) {
		panic("boom")
	})
	require.NoError(t, s.Listen())

	served := make(chan error, 1)
	go func() { served <- s.Serve() }()
	t.Cleanup(func() {
		_ = s.Close()
		select {
		case err := <-served:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Serve did not return after Close")
		}
	})
	return s
}

func roundTrip(t *testing.T, conn net.Conn, req *common.Request) *common.Response {
	codec := serializer.NewCodec(serializer.NewBinarySerializer())
	buf, err := codec.Encode(req)
	require.NoError(t, err)
	require.NoError(t, transport.WriteFrame(conn, buf))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := transport.NewFrameReader(conn, 0).ReadFrame()
	require.NoError(t, err)
	resp, err := codec.Decode(frame)
	require.NoError(t, err)
	return resp
}

func dial(t *testing.T, s *RPCServer) net.Conn {
	conn, err := net.DialTimeout("tcp", s.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServerEcho(t *testing.T) {
	conn := dial(t, startServer(t))

	req := common.NewRequest(EchoService, EchoMethod, []byte("hello"))
	resp := roundTrip(t, conn, req)
	assert.Equal(t, req.Ack, resp.Ack)
	assert.Equal(t, "hello", string(resp.Payload))
	assert.Empty(t, resp.Err)
}

func TestServerUnknownMethod(t *testing.T) {
	conn := dial(t, startServer(t))

	req := common.NewRequest("nope", "nope", nil)
	resp := roundTrip(t, conn, req)
	assert.Equal(t, req.Ack, resp.Ack)
	assert.Contains(t, resp.Err, "unknown method nope.nope")
}

func TestServerHandlerError(t *testing.T) {
	conn := dial(t, startServer(t))

	resp := roundTrip(t, conn, common.NewRequest("test", "fail", nil))
	assert.Equal(t, assert.AnError.Error(), resp.Err)

	resp = roundTrip(t, conn, common.NewRequest("test", "panic", nil))
	assert.Contains(t, resp.Err, "panicked")
}

func TestServerSleepRespectsTimeout(t *testing.T) {
	conn := dial(t, startServer(t))

	start := time.Now()
	resp := roundTrip(t, conn, common.NewRequest(EchoService, SleepMethod, []byte("10s")))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, resp.Err, context.DeadlineExceeded.Error())

	resp = roundTrip(t, conn, common.NewRequest(EchoService, SleepMethod, []byte("10ms")))
	assert.Empty(t, resp.Err)
	assert.Equal(t, "10ms", string(resp.Payload))
}
