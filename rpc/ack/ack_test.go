package ack

import (
	"bytes"
	"context"
	"errors"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var (
	local  = host.New("10.0.0.1", 0, "")
	remote = host.New("10.0.0.2", 9000, "s1")
)

func newFuture(timeout time.Duration, c ICollector) *Future {
	return NewFuture(common.NewRequest("svc", "m", []byte("x")), local, remote, timeout, c)
}

func TestTablePutRemove(t *testing.T) {
	table := NewTable()
	f := newFuture(0, nil)

	require.NoError(t, table.Put(f))
	assert.True(t, table.Contains(f.Ack()))
	assert.Equal(t, 1, table.Len())

	assert.Same(t, f, table.Remove(f.Ack()))
	// removed exactly once
	assert.Nil(t, table.Remove(f.Ack()))
	assert.Equal(t, 0, table.Len())
}

func TestTableRejectsDuplicate(t *testing.T) {
	table := NewTable()
	f := newFuture(0, nil)
	dup := NewFuture(&common.Request{Ack: f.Ack()}, local, remote, 0, nil)

	require.NoError(t, table.Put(f))
	err := table.Put(dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDuplicateAck))
	assert.True(t, common.IsFrameworkError(err))

	// the existing entry is kept
	assert.Same(t, f, table.Remove(f.Ack()))
}

func TestTableRemoveIf(t *testing.T) {
	table := NewTable()
	f := newFuture(0, nil)
	other := NewFuture(&common.Request{Ack: f.Ack()}, local, remote, 0, nil)

	require.NoError(t, table.Put(f))
	assert.False(t, table.RemoveIf(other))
	assert.True(t, table.RemoveIf(f))
	assert.False(t, table.RemoveIf(f))
}

func TestTableDrain(t *testing.T) {
	table := NewTable()
	for i := 0; i < 5; i++ {
		require.NoError(t, table.Put(newFuture(0, nil)))
	}
	assert.Len(t, table.Drain(), 5)
	assert.Equal(t, 0, table.Len())
}

func TestFutureResolveOnce(t *testing.T) {
	f := newFuture(time.Second, nil)
	resp := &common.Response{Ack: f.Ack(), Payload: []byte("ok")}

	assert.True(t, f.Resolve(resp))
	assert.False(t, f.Fail(errors.New("late")))
	assert.False(t, f.Resolve(&common.Response{}))

	got, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, resp, got)
}

func TestFutureTimeout(t *testing.T) {
	c := NewMemoryCollector()
	f := newFuture(20*time.Millisecond, c)

	var hookCalls atomic.Int32
	f.SetWaitFailureHook(func(_ *Future, err error) {
		assert.True(t, errors.Is(err, common.ErrTimeout))
		hookCalls.Add(1)
	})

	_, err := f.Get(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrTimeout))

	// waiting again returns the same failure, the hook does not run twice
	_, err2 := f.Get(context.Background())
	assert.Equal(t, err, err2)
	assert.Equal(t, int32(1), hookCalls.Load())
	assert.Equal(t, 1, c.Peek(f).Timeout())

	// a late response is ignored
	assert.False(t, f.Resolve(&common.Response{Ack: f.Ack()}))
}

func TestFutureDeadlineWithoutWaiter(t *testing.T) {
	c := NewMemoryCollector()
	f := newFuture(20*time.Millisecond, c)

	hookErrs := make(chan error, 2)
	f.SetWaitFailureHook(func(_ *Future, err error) { hookErrs <- err })
	f.StartDeadline()
	f.StartDeadline()

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("future not failed after its deadline")
	}
	_, err := f.Result()
	assert.True(t, errors.Is(err, common.ErrTimeout))
	assert.True(t, errors.Is(<-hookErrs, common.ErrTimeout))
	assert.Equal(t, 1, c.Peek(f).Timeout())

	// Get neither waits nor runs the hook again
	_, err2 := f.Get(context.Background())
	assert.Equal(t, err, err2)
	assert.Len(t, hookErrs, 0)
}

func TestFutureDeadlineStoppedOnResolve(t *testing.T) {
	f := newFuture(20*time.Millisecond, nil)
	var hookCalls atomic.Int32
	f.SetWaitFailureHook(func(*Future, error) { hookCalls.Add(1) })
	f.StartDeadline()

	require.True(t, f.Resolve(&common.Response{Ack: f.Ack()}))
	time.Sleep(50 * time.Millisecond)

	_, err := f.Result()
	assert.NoError(t, err)
	assert.Equal(t, int32(0), hookCalls.Load())
}

func TestFutureContextDeadlineIsTimeout(t *testing.T) {
	f := newFuture(0, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Get(ctx)
	assert.True(t, errors.Is(err, common.ErrTimeout))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFutureContextCancelIsNotTimeout(t *testing.T) {
	f := newFuture(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Get(ctx)
	assert.False(t, errors.Is(err, common.ErrTimeout))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFutureConcurrentComplete(t *testing.T) {
	f := newFuture(time.Second, nil)
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var ok bool
			if i%2 == 0 {
				ok = f.Resolve(&common.Response{Ack: f.Ack()})
			} else {
				ok = f.Fail(common.ErrConnectionClosed)
			}
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	<-f.Done()
}

func TestCollectorCounts(t *testing.T) {
	c := NewMemoryCollector()
	f := newFuture(0, c)

	c.Collect(f, common.ErrTimeout)
	c.Collect(f, common.ErrTimeout)
	assert.Equal(t, 2, c.Peek(f).Timeout())

	c.Collect(f, nil)
	assert.Equal(t, 0, c.Peek(f).Timeout())
	assert.Equal(t, 0, c.Len())

	c.Collect(f, common.ErrTimeout)
	assert.Equal(t, 0, c.Sweep(time.Hour))
	assert.Equal(t, 1, c.Sweep(0))

	var buf bytes.Buffer
	c.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `drpc_requests_total{service="svc",method="m",outcome="timeout"} 3`)
	assert.Contains(t, buf.String(), `outcome="ok"`)
}
