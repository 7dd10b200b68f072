package server

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/serializer"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"os/signal"
	"runtime"
	"syscall"
)

var Logger = logger.GetLogger("server")

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//	s.Register("echo", "echo", server.Echo)
//
//	if err := s.ListenAndServe(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	rpcSerializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", config.String())

	return &RPCServer{
		config:    config,
		transport: transport,
		codec:     serializer.NewCodec(rpcSerializer),
		handlers:  xsync.NewMapOf[string, HandlerFunc](),
	}
}

// RPCServer dispatches decoded requests to the handler registered for "service.method"
// and answers with a response carrying the same ack id
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	codec     serializer.Codec
	handlers  *xsync.MapOf[string, HandlerFunc]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see interface.go)
// --------------------------------------------------------------------------

func (s *RPCServer) Register(service, method string, handler HandlerFunc) {
	name := service + "." + method
	if _, loaded := s.handlers.LoadAndStore(name, handler); loaded {
		Logger.Warningf("handler for %s replaced", name)
	} else {
		Logger.Debugf("registered handler for %s", name)
	}
}

func (s *RPCServer) Listen() error {
	s.transport.RegisterHandler(s.handle)
	return s.transport.Listen(s.config)
}

func (s *RPCServer) Serve() error {
	return s.transport.Serve()
}

func (s *RPCServer) Addr() string {
	return s.transport.Addr()
}

func (s *RPCServer) Close() error {
	Logger.Infof("Closing RPC Server")
	return s.transport.Close()
}

// ListenAndServe binds the server and serves connections until Close is called
func (s *RPCServer) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handle decodes a frame, runs the handler and encodes the response.
// Frames that can not be decoded are dropped, there is no ack to answer to.
func (s *RPCServer) handle(ctx context.Context, buf []byte) []byte {
	req, err := s.codec.DecodeRequest(buf)
	if err != nil {
		Logger.Errorf("dropping frame: %v", err)
		return nil
	}

	payload, err := s.dispatch(ctx, req)
	out, err := s.codec.EncodeResponse(common.NewResponse(req, payload, err))
	if err != nil {
		Logger.Errorf("failed to encode response for %s: %v", req.Name(), err)
		out, err = s.codec.EncodeResponse(common.NewResponse(req, nil, err))
		if err != nil {
			return nil
		}
	}
	return out
}

// dispatch runs the handler of the request, a panicking handler is reported as error
func (s *RPCServer) dispatch(ctx context.Context, req *common.Request) (payload []byte, err error) {
	handler, ok := s.handlers.Load(req.Name())
	if !ok {
		return nil, fmt.Errorf("unknown method %s", req.Name())
	}

	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("handler %s panicked: %v", req.Name(), r)
			payload, err = nil, fmt.Errorf("handler %s panicked: %v", req.Name(), r)
		}
	}()
	return handler(ctx, req)
}
