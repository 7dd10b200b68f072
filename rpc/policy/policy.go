package policy

import (
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/ack"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("policy")

// Connection is the view of a connection handle that the policies need
type Connection interface {
	Host() host.Host
	Close() error
}

// --------------------------------------------------------------------------
// Timeout policy
// --------------------------------------------------------------------------

// ITimeoutPolicy is notified after a request timed out. times is the cumulative
// number of timeouts of the request id (including the current one).
type ITimeoutPolicy interface {
	Timeout(conn Connection, f *ack.Future, times int)
}

// NoopPolicy ignores all timeouts
type NoopPolicy struct{}

func (NoopPolicy) Timeout(Connection, *ack.Future, int) {}

// ThresholdPolicy records timeouts per host and closes the connection once a request
// timed out Threshold times. Closing the connection bans the host, so it is reconnected
// by the reconnection scheduler.
type ThresholdPolicy struct {
	Threshold int
	registry  metrics.Registry
}

// NewThresholdPolicy creates a policy with its own metrics registry. threshold <= 0
// only records timeouts.
func NewThresholdPolicy(threshold int) *ThresholdPolicy {
	return &ThresholdPolicy{
		Threshold: threshold,
		registry:  metrics.NewRegistry(),
	}
}

func (p *ThresholdPolicy) Timeout(conn Connection, f *ack.Future, times int) {
	p.meter(conn.Host()).Mark(1)

	if p.Threshold <= 0 || times < p.Threshold {
		Logger.Debugf("request %s to %s timed out (%d times)", f.Ack(), conn.Host(), times)
		return
	}

	Logger.Warningf("request %s to %s timed out %d times (threshold %d), closing connection", f.Ack(), conn.Host(), times, p.Threshold)
	if err := conn.Close(); err != nil {
		Logger.Debugf("closing connection to %s: %v", conn.Host(), err)
	}
}

// Timeouts returns the number of recorded timeouts for h
func (p *ThresholdPolicy) Timeouts(h host.Host) int64 {
	return p.meter(h).Count()
}

// Rate1 returns the one-minute moving average rate of timeouts for h
func (p *ThresholdPolicy) Rate1(h host.Host) float64 {
	return p.meter(h).Rate1()
}

// Stop unregisters all meters
func (p *ThresholdPolicy) Stop() {
	p.registry.UnregisterAll()
}

func (p *ThresholdPolicy) meter(h host.Host) metrics.Meter {
	return metrics.GetOrRegisterMeter(fmt.Sprintf("drpc.timeouts.%s", h), p.registry)
}

// --------------------------------------------------------------------------
// Token context
// --------------------------------------------------------------------------

// TokenHeader is the request header carrying the auth token
const TokenHeader = "token"

// ITokenContext attaches authentication tokens to requests
type ITokenContext interface {
	// Set returns the request to send, it must not modify req
	Set(req *common.Request, conn Connection) *common.Request
}

// NoToken sends all requests unchanged
type NoToken struct{}

func (NoToken) Set(req *common.Request, _ Connection) *common.Request {
	return req
}

// StaticToken attaches a fixed token. A token in PerHost takes precedence over Token.
type StaticToken struct {
	Token   string
	PerHost map[host.Host]string
}

func (s StaticToken) Set(req *common.Request, conn Connection) *common.Request {
	token := s.Token
	if t, ok := s.PerHost[conn.Host()]; ok {
		token = t
	}
	if token == "" {
		return req
	}
	return req.WithHeader(TokenHeader, token)
}
