package connect

import (
	"github.com/ValentinKolb/dRPC/rpc/ack"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/ValentinKolb/dRPC/rpc/policy"
	"github.com/ValentinKolb/dRPC/rpc/serializer"
	"github.com/ValentinKolb/dRPC/rpc/transport"
)

// Option configures the collaborators of a Manager
type Option func(*managerOptions)

type managerOptions struct {
	directory  host.IHostDirectory
	queue      host.IHostQueue
	policy     policy.ITimeoutPolicy
	collector  ack.ICollector
	token      policy.ITokenContext
	connector  transport.IClientConnector
	serializer serializer.IRPCSerializer
	stages     []transport.IStage
}

// WithDirectory sets the host directory notified about bans and activations
func WithDirectory(d host.IHostDirectory) Option {
	return func(o *managerOptions) {
		o.directory = d
	}
}

// WithQueue sets the work queue of the reconnection scheduler
func WithQueue(q host.IHostQueue) Option {
	return func(o *managerOptions) {
		o.queue = q
	}
}

// WithHosts uses d as host directory and as reconnection queue
func WithHosts[T interface {
	host.IHostDirectory
	host.IHostQueue
}](d T) Option {
	return func(o *managerOptions) {
		o.directory = d
		o.queue = d
	}
}

// WithTimeoutPolicy sets the policy notified about request timeouts
func WithTimeoutPolicy(p policy.ITimeoutPolicy) Option {
	return func(o *managerOptions) {
		o.policy = p
	}
}

// WithCollector sets the collector of completed requests
func WithCollector(c ack.ICollector) Option {
	return func(o *managerOptions) {
		o.collector = c
	}
}

// WithTokenContext sets the token attacher
func WithTokenContext(t policy.ITokenContext) Option {
	return func(o *managerOptions) {
		o.token = t
	}
}

// WithConnector sets the client connector (default tcp)
func WithConnector(c transport.IClientConnector) Option {
	return func(o *managerOptions) {
		o.connector = c
	}
}

// WithSerializer sets the serializer of requests and responses (default binary)
func WithSerializer(s serializer.IRPCSerializer) Option {
	return func(o *managerOptions) {
		o.serializer = s
	}
}

// WithStage appends a stage to the pipeline of every connection
func WithStage(s transport.IStage) Option {
	return func(o *managerOptions) {
		o.stages = append(o.stages, s)
	}
}
