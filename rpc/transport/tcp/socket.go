package tcp

import (
	"net"
	"time"
)

// socketOptions are the options applied to every TCP connection
type socketOptions struct {
	noDelay         bool
	writeBufferSize int
	readBufferSize  int
	keepAlive       time.Duration
}

// upgradeConnection applies performance optimizations to a TCP connection
func upgradeConnection(conn net.Conn, opts socketOptions) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := tcpConn.SetNoDelay(opts.noDelay); err != nil {
		return err
	}

	// Set socket write buffer size if configured
	if opts.writeBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(opts.writeBufferSize); err != nil {
			return err
		}
	}

	// Set socket read buffer size if configured
	if opts.readBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(opts.readBufferSize); err != nil {
			return err
		}
	}

	// Enable TCP keep-alive if configured
	if opts.keepAlive > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(opts.keepAlive); err != nil {
			return err
		}
	}

	return nil
}
