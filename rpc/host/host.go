package host

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"strconv"
)

var Logger = logger.GetLogger("host")

// LoopAddress is the address used instead of the advertised one for hosts on the local machine
const LoopAddress = "127.0.0.1"

// Host is the identity of a remote endpoint. It is an immutable, comparable value and
// is used directly as key for the connection registry and the host locks.
type Host struct {
	Address string `json:"address" toml:"address"`
	Port    int    `json:"port" toml:"port"`
	SID     string `json:"sid,omitempty" toml:"sid"` // session / instance id
}

// New creates a host
func New(address string, port int, sid string) Host {
	return Host{Address: address, Port: port, SID: sid}
}

// Parse creates a host from "address:port"
func Parse(hostPort, sid string) (Host, error) {
	address, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return Host{}, fmt.Errorf("invalid host %q: %w", hostPort, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Host{}, fmt.Errorf("invalid port in host %q: %w", hostPort, err)
	}
	return New(address, port, sid), nil
}

// HostPort returns the dial address "address:port"
func (h Host) HostPort() string {
	return net.JoinHostPort(h.Address, strconv.Itoa(h.Port))
}

// LoopHostPort returns the loopback dial address for the port of the host
func (h Host) LoopHostPort() string {
	return net.JoinHostPort(LoopAddress, strconv.Itoa(h.Port))
}

// Loop reports whether the host lives on the same machine as local
func (h Host) Loop(local Host) bool {
	return h.Address == local.Address || h.Address == LoopAddress
}

func (h Host) String() string {
	if h.SID == "" {
		return h.HostPort()
	}
	return fmt.Sprintf("%s[sid=%s]", h.HostPort(), h.SID)
}
