package ack

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"time"
)

var Logger = logger.GetLogger("ack")

// Stats are the collected statistics of one acknowledgment id
type Stats struct {
	Timeouts int
	LastSeen time.Time
}

// Timeout returns the cumulative number of timeouts of the request
func (s Stats) Timeout() int {
	return s.Timeouts
}

// ICollector receives every completed future
type ICollector interface {
	// Collect is called once per future when it completes (err is nil on success)
	Collect(f *Future, err error)
	// Peek returns the statistics of the acknowledgment id of f
	Peek(f *Future) Stats
}

// --------------------------------------------------------------------------
// In-memory collector
// --------------------------------------------------------------------------

// MemoryCollector counts timeouts per acknowledgment id and exports request counters and
// latency histograms in the prometheus format. Timeout counters of an id are dropped once
// the id completes without timeout, stale counters are removed by Sweep.
type MemoryCollector struct {
	timeouts *xsync.MapOf[common.AckID, Stats]
	set      *metrics.Set
}

// NewMemoryCollector creates a new collector with its own metrics set
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		timeouts: xsync.NewMapOf[common.AckID, Stats](),
		set:      metrics.NewSet(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see ICollector)
// --------------------------------------------------------------------------

func (c *MemoryCollector) Collect(f *Future, err error) {
	req := f.Request()
	outcome := "ok"

	switch {
	case err == nil:
		c.timeouts.Delete(f.Ack())
	case errors.Is(err, common.ErrTimeout):
		outcome = "timeout"
		c.timeouts.Compute(f.Ack(), func(s Stats, _ bool) (Stats, bool) {
			s.Timeouts++
			s.LastSeen = time.Now()
			return s, false
		})
	default:
		outcome = "error"
		c.timeouts.Delete(f.Ack())
	}

	c.set.GetOrCreateCounter(fmt.Sprintf(`drpc_requests_total{service=%q,method=%q,outcome=%q}`, req.Service, req.Method, outcome)).Inc()
	c.set.GetOrCreateHistogram(fmt.Sprintf(`drpc_request_duration_seconds{service=%q,method=%q}`, req.Service, req.Method)).UpdateDuration(f.Created())
}

func (c *MemoryCollector) Peek(f *Future) Stats {
	s, _ := c.timeouts.Load(f.Ack())
	return s
}

// --------------------------------------------------------------------------
// Maintenance
// --------------------------------------------------------------------------

// Sweep removes timeout counters that were not updated for maxAge and returns their number
func (c *MemoryCollector) Sweep(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	c.timeouts.Range(func(id common.AckID, s Stats) bool {
		if s.LastSeen.Before(cutoff) {
			c.timeouts.Delete(id)
			removed++
		}
		return true
	})
	if removed > 0 {
		Logger.Debugf("swept %d stale timeout counters", removed)
	}
	return removed
}

// Len returns the number of tracked acknowledgment ids
func (c *MemoryCollector) Len() int {
	return c.timeouts.Size()
}

// WritePrometheus writes the request metrics in the prometheus text format
func (c *MemoryCollector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}
