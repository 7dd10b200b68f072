package ack

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"sync"
	"time"
)

// WaitFailureHook is called exactly once if waiting for a future fails (timeout or cancellation)
type WaitFailureHook func(f *Future, err error)

// Future is the pending-request handle of one invocation. It resolves exactly once,
// either with a response or with an error. The first call to Resolve or Fail wins.
type Future struct {
	req       *common.Request
	local     host.Host
	remote    host.Host
	timeout   time.Duration
	collector ICollector

	created  time.Time
	deadline time.Time

	once sync.Once
	done chan struct{}
	resp *common.Response
	err  error

	hookOnce sync.Once
	hook     WaitFailureHook

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewFuture creates a future for req. A timeout <= 0 means that the future only ends
// with a response, an error or the cancellation of the waiting context.
func NewFuture(req *common.Request, local, remote host.Host, timeout time.Duration, collector ICollector) *Future {
	now := time.Now()
	f := &Future{
		req:       req,
		local:     local,
		remote:    remote,
		timeout:   timeout,
		collector: collector,
		created:   now,
		done:      make(chan struct{}),
	}
	if timeout > 0 {
		f.deadline = now.Add(timeout)
	}
	return f
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

func (f *Future) Request() *common.Request { return f.req }
func (f *Future) Ack() common.AckID        { return f.req.Ack }
func (f *Future) Local() host.Host         { return f.local }
func (f *Future) Remote() host.Host        { return f.remote }
func (f *Future) Created() time.Time       { return f.created }

// SetWaitFailureHook installs the cleanup hook that runs once if waiting fails.
// It must be installed before the future is handed to a waiter.
func (f *Future) SetWaitFailureHook(hook WaitFailureHook) {
	f.hook = hook
}

// --------------------------------------------------------------------------
// Completion
// --------------------------------------------------------------------------

// Resolve completes the future with a response. It returns false if the future was already completed.
func (f *Future) Resolve(resp *common.Response) bool {
	return f.complete(resp, nil)
}

// Fail completes the future with an error. It returns false if the future was already completed.
func (f *Future) Fail(err error) bool {
	return f.complete(nil, err)
}

func (f *Future) complete(resp *common.Response, err error) bool {
	completed := false
	f.once.Do(func() {
		f.resp = resp
		f.err = err
		completed = true
		close(f.done)
	})
	if !completed {
		return false
	}

	f.timerMu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timerMu.Unlock()

	if f.collector != nil {
		f.collector.Collect(f, err)
	}
	return true
}

// StartDeadline arms the deadline of the future. Once it expires the future fails with
// an error matching common.ErrTimeout and the wait-failure hook runs, whether or not
// anybody waits in Get. Futures without a timeout are not affected.
func (f *Future) StartDeadline() {
	if f.deadline.IsZero() {
		return
	}

	f.timerMu.Lock()
	defer f.timerMu.Unlock()
	select {
	case <-f.done:
		return
	default:
	}
	if f.timer == nil {
		f.timer = time.AfterFunc(time.Until(f.deadline), f.expire)
	}
}

func (f *Future) expire() {
	err := f.timeoutError()
	if f.Fail(err) {
		f.waitFailed(err)
	}
}

func (f *Future) timeoutError() error {
	return fmt.Errorf("%w: request %s (%s) to %s after %s", common.ErrTimeout, f.req.Ack, f.req.Name(), f.remote, f.timeout)
}

// Done returns a channel that is closed once the future is completed
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the response and error of a completed future. It must only be
// called after Done was closed.
func (f *Future) Result() (*common.Response, error) {
	return f.resp, f.err
}

// Get waits until the future completes, its deadline expires or ctx is done.
// Expired deadlines fail the future with an error matching common.ErrTimeout.
func (f *Future) Get(ctx context.Context) (*common.Response, error) {
	var expired <-chan time.Time
	if !f.deadline.IsZero() {
		timer := time.NewTimer(time.Until(f.deadline))
		defer timer.Stop()
		expired = timer.C
	}

	var err error
	select {
	case <-f.done:
		return f.resp, f.err
	case <-expired:
		err = f.timeoutError()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: request %s (%s) to %s: %w", common.ErrTimeout, f.req.Ack, f.req.Name(), f.remote, ctx.Err())
		} else {
			err = fmt.Errorf("request %s (%s) to %s: %w", f.req.Ack, f.req.Name(), f.remote, ctx.Err())
		}
	}

	if !f.Fail(err) {
		// completed concurrently, the real result wins
		return f.resp, f.err
	}
	f.waitFailed(err)
	return nil, err
}

func (f *Future) waitFailed(err error) {
	if f.hook == nil {
		return
	}
	f.hookOnce.Do(func() {
		f.hook(f, err)
	})
}
