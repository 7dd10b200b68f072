package common

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Connect (client) configuration struct
// --------------------------------------------------------------------------

// ConnectConfig holds all configuration parameters of the connection manager
type ConnectConfig struct {
	// Timeouts
	ConnectTimeoutMillis int
	RequestTimeoutMillis int
	WriteTimeoutMillis   int

	// Framing and socket options (0 = keep the OS default)
	MaxFrameLength int
	SendBufferSize int
	RecvBufferSize int

	// Reconnection scheduler
	EstablishWorkers            int
	EstablishErrorBackoffMillis int

	// EstablishLoop enables loopback substitution for hosts on the local machine
	EstablishLoop bool

	// Event loops
	EventLoopShared  bool
	EventLoopWorkers int
	ReleaseWorkers   int

	// HostLockSegments is the number of striped host locks
	HostLockSegments int

	// TimeoutThreshold is the number of timeouts of one request after which the
	// connection is closed (0 disables the threshold policy)
	TimeoutThreshold int

	// Compression is the name of the compression stage ("" or "zstd")
	Compression string

	// Logging configuration
	LogLevel string
}

// DefaultConnectConfig returns the default connect configuration
func DefaultConnectConfig() ConnectConfig {
	return ConnectConfig{
		ConnectTimeoutMillis:        5000,
		RequestTimeoutMillis:        10000,
		WriteTimeoutMillis:          5000,
		MaxFrameLength:              math.MaxInt32,
		EstablishWorkers:            1,
		EstablishErrorBackoffMillis: 100,
		EstablishLoop:               true,
		EventLoopShared:             true,
		EventLoopWorkers:            runtime.NumCPU() * 2,
		ReleaseWorkers:              4,
		HostLockSegments:            32,
		Compression:                 "",
		LogLevel:                    "info",
	}
}

// ConnectTimeout returns the connect timeout as duration
func (c *ConnectConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMillis) * time.Millisecond
}

// RequestTimeout returns the request timeout as duration
func (c *ConnectConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

// WriteTimeout returns the write timeout as duration (0 means no write deadline)
func (c *ConnectConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMillis) * time.Millisecond
}

// EstablishErrorBackoff returns the pause of a reconnection worker after a queue error
func (c *ConnectConfig) EstablishErrorBackoff() time.Duration {
	return time.Duration(c.EstablishErrorBackoffMillis) * time.Millisecond
}

// String returns a formatted string representation of the connect configuration
func (c *ConnectConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Timeouts")
	addField("Connect", fmt.Sprintf("%d ms", c.ConnectTimeoutMillis))
	addField("Request", fmt.Sprintf("%d ms", c.RequestTimeoutMillis))
	addField("Write", fmt.Sprintf("%d ms", c.WriteTimeoutMillis))

	addSection("Connection")
	addField("Max Frame Length", strconv.Itoa(c.MaxFrameLength))
	addField("Send Buffer", bufferSize(c.SendBufferSize))
	addField("Receive Buffer", bufferSize(c.RecvBufferSize))
	addField("Compression", orNone(c.Compression))
	addField("Loopback Substitution", strconv.FormatBool(c.EstablishLoop))

	addSection("Event Loops")
	addField("Shared", strconv.FormatBool(c.EventLoopShared))
	addField("Workers", strconv.Itoa(c.EventLoopWorkers))
	addField("Release Workers", strconv.Itoa(c.ReleaseWorkers))

	addSection("Reconnection")
	addField("Workers", strconv.Itoa(c.EstablishWorkers))
	addField("Error Backoff", fmt.Sprintf("%d ms", c.EstablishErrorBackoffMillis))
	addField("Host Lock Segments", strconv.Itoa(c.HostLockSegments))
	addField("Timeout Threshold", strconv.Itoa(c.TimeoutThreshold))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds the configuration of the peer side frame server
type ServerConfig struct {
	// Endpoint to listen on (host:port)
	Endpoint string

	// TimeoutSecond bounds a single handler invocation (0 = unlimited)
	TimeoutSecond int64

	// WorkersPerConn is the number of concurrent handler goroutines per connection
	WorkersPerConn int

	// Framing
	MaxFrameLength int
	Compression    string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.WorkersPerConn))
	addField("Max Frame Length", strconv.Itoa(c.MaxFrameLength))
	addField("Compression", orNone(c.Compression))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func bufferSize(size int) string {
	if size <= 0 {
		return "os default"
	}
	return fmt.Sprintf("%d bytes", size)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
