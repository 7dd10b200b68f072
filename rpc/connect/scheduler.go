package connect

import "time"

type sweeper interface {
	Sweep(maxAge time.Duration) int
}

// Start runs the reconnection workers (and the collector sweeper if the collector
// supports it). Calling Start more than once has no effect.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		for i := 0; i < m.config.EstablishWorkers; i++ {
			id := i
			m.workers.Go(func() { m.establish(id) })
		}
		if s, ok := m.collector.(sweeper); ok {
			m.workers.Go(func() { m.sweep(s) })
		}
		Logger.Infof("Started %d reconnection workers", m.config.EstablishWorkers)
	})
}

// establish pulls hosts from the queue and connects them until the manager is destroyed.
// A failing host never stops the loop.
func (m *Manager) establish(id int) {
	for !m.isShutdown() {
		h, err := m.queue.Get(m.ctx)
		if err != nil {
			Logger.Warningf("reconnection worker %d: queue error: %v", id, err)
			m.pause(m.config.EstablishErrorBackoff())
			continue
		}
		if h == nil {
			continue
		}
		if err := m.Connect(m.ctx, *h); err != nil {
			Logger.Debugf("reconnection worker %d: %v", id, err)
		}
	}
	Logger.Debugf("reconnection worker %d stopped", id)
}

// sweep periodically removes stale timeout counters from the collector
func (m *Manager) sweep(s sweeper) {
	interval := max(m.config.RequestTimeout(), time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(10 * interval)
		}
	}
}

// pause sleeps for d or until the manager is destroyed
func (m *Manager) pause(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-m.ctx.Done():
	case <-timer.C:
	}
}
