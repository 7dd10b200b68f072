package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error

	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the frame server independent of the network protocol
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig
	listener  net.Listener
	stages    transport.Pipeline
	conns     *xsync.MapOf[net.Conn, struct{}]
	closed    atomic.Bool
	wg        sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     xsync.NewMapOf[net.Conn, struct{}](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	// minimum one worker per connection
	config.WorkersPerConn = max(config.WorkersPerConn, 1)
	t.config = config

	stages, err := transport.StagesFor(config.Compression, config.MaxFrameLength)
	if err != nil {
		return err
	}
	t.stages = stages

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.listener = listener

	Logger.Infof("Listening with %s on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), config.WorkersPerConn)
	return nil
}

func (t *serverTransport) Serve() error {
	if t.listener == nil {
		return fmt.Errorf("server transport is not listening")
	}
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	// Accept connections
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if t.closed.Load() {
				t.wg.Wait()
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
			Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
			_ = conn.Close()
			continue
		}

		// Handle the connection in a goroutine
		t.conns.Store(conn, struct{}{})
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			defer t.conns.Delete(conn)
			t.handleConnection(conn)
		}()
	}
}

func (t *serverTransport) Addr() string {
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

func (t *serverTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	t.conns.Range(func(conn net.Conn, _ struct{}) bool {
		_ = conn.Close()
		return true
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection handles incoming frames of one connection
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer conn.Close()

	Logger.Debugf("Accepted connection from %s", conn.RemoteAddr())

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, t.config.WorkersPerConn)

	// Create a wait group to wait for all workers to finish
	var wg sync.WaitGroup

	// Create a mutex to protect writes to the connection
	var connMutex sync.Mutex

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handler function that processes frames in worker goroutines
	handleFrame := func(data []byte) {
		// When done, release the semaphore and mark worker as done
		defer func() {
			<-workerSemaphore
			wg.Done()
		}()

		hctx := ctx
		if timeout > 0 {
			var hcancel context.CancelFunc
			hctx, hcancel = context.WithTimeout(ctx, timeout)
			defer hcancel()
		}

		in, err := t.stages.Inbound(data)
		if err != nil {
			Logger.Errorf("Failed to process frame from %s: %v", conn.RemoteAddr(), err)
			return
		}

		start := time.Now()
		resp := t.handler(hctx, in)
		Logger.Debugf("Processed frame from %s took %s", conn.RemoteAddr(), time.Since(start))
		if resp == nil {
			return
		}

		out, err := t.stages.Outbound(resp)
		if err != nil {
			Logger.Errorf("Failed to process response to %s: %v", conn.RemoteAddr(), err)
			return
		}

		// Protect writes to the connection with a mutex
		connMutex.Lock()
		defer connMutex.Unlock()

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}

		if err := transport.WriteFrame(conn, out); err != nil {
			Logger.Debugf("Failed to write response to %s: %v", conn.RemoteAddr(), err)
		}
	}

	reader := transport.NewFrameReader(conn, t.config.MaxFrameLength)

	// Handle frames in a loop
	for {
		data, err := reader.ReadFrame()

		// Case EOF: Connection closed by client
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			Logger.Debugf("Connection closed by %s", conn.RemoteAddr())
			break
		}

		// Case error: log and close connection
		if err != nil {
			Logger.Errorf("Error reading frame from %s: %v", conn.RemoteAddr(), err)
			break
		}

		// Acquire a slot in the semaphore (blocks if WorkersPerConn is reached)
		workerSemaphore <- struct{}{}
		wg.Add(1)
		go handleFrame(data)
	}

	// Wait for all workers to finish before closing the connection
	wg.Wait()
}
