package connect

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/ack"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/ValentinKolb/dRPC/rpc/policy"
	"github.com/ValentinKolb/dRPC/rpc/serializer"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/ValentinKolb/dRPC/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"runtime"
	"sync"
	"time"
)

var Logger = logger.GetLogger("connect")

// Manager is the single entry point to connect hosts. It owns the registry of live
// invokers, the striped host locks, the shared event loop group, the reconnection
// workers and the release pool.
type Manager struct {
	local  host.Host
	config common.ConnectConfig

	// shutdown
	ctx         context.Context
	cancel      context.CancelFunc
	startOnce   sync.Once
	destroyOnce sync.Once

	locks    *host.Locks
	registry *Registry
	shared   *EventLoopGroup // nil if every connection gets a private group

	// collaborators
	directory host.IHostDirectory
	queue     host.IHostQueue
	policy    policy.ITimeoutPolicy
	collector ack.ICollector
	token     policy.ITokenContext
	connector transport.IClientConnector
	codec     serializer.Codec
	stages    transport.Pipeline

	// reconnection workers and release pool
	workers       conc.WaitGroup
	releasePool   *pool.Pool
	releaseMu     sync.RWMutex
	releaseClosed bool
}

// NewManager creates a connection manager for the local host. Start must be called
// to run the reconnection workers.
func NewManager(local host.Host, config common.ConnectConfig, opts ...Option) (*Manager, error) {
	config = normalize(config)

	o := &managerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	stages, err := transport.StagesFor(config.Compression, config.MaxFrameLength)
	if err != nil {
		return nil, err
	}
	stages = append(stages, o.stages...)

	// Default collaborators
	if o.directory == nil || o.queue == nil {
		memory := host.NewMemoryDirectory(time.Second, time.Second)
		if o.directory == nil {
			o.directory = memory
		}
		if o.queue == nil {
			if q, ok := o.directory.(host.IHostQueue); ok {
				o.queue = q
			} else {
				o.queue = memory
			}
		}
	}
	if o.policy == nil {
		o.policy = policy.NewThresholdPolicy(config.TimeoutThreshold)
	}
	if o.collector == nil {
		o.collector = ack.NewMemoryCollector()
	}
	if o.token == nil {
		o.token = policy.NoToken{}
	}
	if o.connector == nil {
		o.connector = tcp.NewTCPClientConnector()
	}
	if o.serializer == nil {
		o.serializer = serializer.NewBinarySerializer()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		local:       local,
		config:      config,
		ctx:         ctx,
		cancel:      cancel,
		locks:       host.NewLocks(config.HostLockSegments),
		registry:    NewRegistry(),
		directory:   o.directory,
		queue:       o.queue,
		policy:      o.policy,
		collector:   o.collector,
		token:       o.token,
		connector:   o.connector,
		codec:       serializer.NewCodec(o.serializer),
		stages:      stages,
		releasePool: pool.New().WithMaxGoroutines(config.ReleaseWorkers),
	}
	if config.EventLoopShared {
		m.shared = NewEventLoopGroup("shared", config.EventLoopWorkers)
	}

	Logger.Infof("Created connection manager for %s", local)
	Logger.Debugf("%s", config.String())
	return m, nil
}

// normalize replaces invalid config values by their defaults
func normalize(config common.ConnectConfig) common.ConnectConfig {
	if config.EventLoopWorkers <= 0 {
		config.EventLoopWorkers = runtime.NumCPU() * 2
	}
	if config.ReleaseWorkers <= 0 {
		config.ReleaseWorkers = 1
	}
	if config.EstablishWorkers < 0 {
		config.EstablishWorkers = 0
	}
	if config.HostLockSegments <= 0 {
		config.HostLockSegments = 32
	}
	if config.EstablishErrorBackoffMillis <= 0 {
		config.EstablishErrorBackoffMillis = 100
	}
	return config
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

func (m *Manager) Local() host.Host               { return m.local }
func (m *Manager) Config() common.ConnectConfig   { return m.config }
func (m *Manager) Registry() *Registry            { return m.registry }
func (m *Manager) Collector() ack.ICollector      { return m.collector }
func (m *Manager) Directory() host.IHostDirectory { return m.directory }

// Invoker returns the live invoker of h
func (m *Manager) Invoker(h host.Host) (*Invoker, bool) {
	return m.registry.Get(h)
}

// Connected reports whether a live invoker is registered for h
func (m *Manager) Connected(h host.Host) bool {
	return m.registry.Contains(h)
}

func (m *Manager) isShutdown() bool {
	return m.ctx.Err() != nil
}

// --------------------------------------------------------------------------
// Connect
// --------------------------------------------------------------------------

// Connect ensures that h is connected. Concurrent calls for the same host are
// serialized by the host lock, so at most one connection per host is opened.
// On success (or if h was already connected) the host directory is told that h is active.
// On failure the host is banned and the error is returned.
func (m *Manager) Connect(ctx context.Context, h host.Host) error {
	if m.isShutdown() {
		return fmt.Errorf("connect %s: %w", h, common.ErrShutdown)
	}

	lock := m.locks.Get(h)
	lock.Lock()
	if m.registry.Contains(h) {
		lock.Unlock()
		Logger.Debugf("%s already connected", h)
	} else {
		err := m.attempt(ctx, h)
		lock.Unlock()
		if err != nil {
			return err
		}
	}

	// destroyed while connecting
	if m.isShutdown() {
		if inv, ok := m.registry.Get(h); ok {
			_ = inv.Close()
		}
		return fmt.Errorf("connect %s: %w", h, common.ErrShutdown)
	}

	m.directory.Active(h)
	return nil
}

// attempt opens a connection to h and registers its invoker. Must hold the host lock.
func (m *Manager) attempt(ctx context.Context, h host.Host) error {
	address := h.HostPort()
	if m.config.EstablishLoop && h.Loop(m.local) {
		address = h.LoopHostPort()
	}

	b := newBuilder(m, h).Add(m.stages...)
	inv, err := b.Connect(ctx, h, address)
	if err != nil {
		Logger.Debugf("connect to %s failed: %v", h, err)
		m.directory.Ban(h)
		// release at once in the callers goroutine
		b.release()
		return err
	}

	inv.active()
	m.registry.Put(h, inv)
	Logger.Infof("Connected to %s via %s", h, address)
	return nil
}

// deregister removes inv from the registry and bans its host. The host lock is held
// for both steps, so a concurrent Connect of the host sees either the old invoker or
// no invoker and a banned host. The host is only banned if inv was the registered invoker.
func (m *Manager) deregister(inv *Invoker) {
	h := inv.Host()
	lock := m.locks.Get(h)
	lock.Lock()
	defer lock.Unlock()

	if !m.registry.DelIf(h, inv) {
		return
	}
	Logger.Infof("Disconnected from %s", h)

	if m.isShutdown() {
		return
	}
	m.directory.Ban(h)
}

// dispatchRelease runs task on the release pool (never on an event loop)
func (m *Manager) dispatchRelease(task func()) {
	m.releaseMu.RLock()
	defer m.releaseMu.RUnlock()
	if m.releaseClosed {
		go task()
		return
	}
	m.releasePool.Go(task)
}

// --------------------------------------------------------------------------
// Invoke
// --------------------------------------------------------------------------

// Invoke sends req to h and waits for the response
func (m *Manager) Invoke(ctx context.Context, h host.Host, req *common.Request) (*common.Response, error) {
	inv, err := m.invoker(h)
	if err != nil {
		return nil, err
	}
	return inv.Invoke(ctx, req)
}

// InvokeAsync sends req to h and returns the pending future
func (m *Manager) InvokeAsync(ctx context.Context, h host.Host, req *common.Request) (*ack.Future, error) {
	inv, err := m.invoker(h)
	if err != nil {
		return nil, err
	}
	return inv.InvokeAsync(ctx, req)
}

func (m *Manager) invoker(h host.Host) (*Invoker, error) {
	if m.isShutdown() {
		return nil, fmt.Errorf("invoke %s: %w", h, common.ErrShutdown)
	}
	inv, ok := m.registry.Get(h)
	if !ok {
		return nil, fmt.Errorf("invoke %s: %w", h, common.ErrNotConnected)
	}
	return inv, nil
}

// --------------------------------------------------------------------------
// Shutdown
// --------------------------------------------------------------------------

// Destroy stops the reconnection workers, closes all connections (failing their pending
// requests) and shuts the shared event loop group down. All calls afterwards return
// common.ErrShutdown.
func (m *Manager) Destroy() {
	m.destroyOnce.Do(func() {
		Logger.Infof("Destroying connection manager for %s", m.local)
		m.cancel()
		m.workers.Wait()

		m.registry.Range(func(_ host.Host, inv *Invoker) bool {
			_ = inv.Close()
			return true
		})

		m.releaseMu.Lock()
		m.releaseClosed = true
		m.releaseMu.Unlock()
		m.releasePool.Wait()

		if m.shared != nil {
			m.shared.ShutdownGracefully()
		}
		if stopper, ok := m.policy.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	})
}
