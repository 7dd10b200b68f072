package host

import (
	"context"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

func TestHostParseAndString(t *testing.T) {
	h, err := Parse("10.0.0.1:9000", "s1")
	require.NoError(t, err)
	assert.Equal(t, New("10.0.0.1", 9000, "s1"), h)
	assert.Equal(t, "10.0.0.1:9000", h.HostPort())
	assert.Equal(t, "10.0.0.1:9000[sid=s1]", h.String())
	assert.Equal(t, "127.0.0.1:9000", h.LoopHostPort())

	_, err = Parse("missing-port", "")
	assert.Error(t, err)
	_, err = Parse("host:abc", "")
	assert.Error(t, err)
}

func TestHostLoop(t *testing.T) {
	local := New("10.0.0.1", 0, "")

	assert.True(t, New("10.0.0.1", 9000, "s1").Loop(local))
	assert.True(t, New("127.0.0.1", 9000, "s1").Loop(local))
	assert.False(t, New("10.0.0.2", 9000, "s1").Loop(local))
}

func TestLocksSameHostSameMutex(t *testing.T) {
	locks := NewLocks(8)
	h := New("10.0.0.1", 9000, "s1")

	assert.Same(t, locks.Get(h), locks.Get(New("10.0.0.1", 9000, "s1")))

	distinct := map[*sync.Mutex]struct{}{}
	for i := 0; i < 100; i++ {
		distinct[locks.Get(New("10.0.0.1", 9000+i, ""))] = struct{}{}
	}
	assert.LessOrEqual(t, len(distinct), 8)
	assert.Equal(t, 8, locks.Size())

	assert.Equal(t, 1, NewLocks(0).Size())
}

func TestMemoryDirectoryRegisterEnqueues(t *testing.T) {
	d := NewMemoryDirectory(0, 50*time.Millisecond)
	h := New("10.0.0.1", 9000, "s1")
	ctx := context.Background()

	require.NoError(t, d.Register(ctx, h))
	// registering twice does not queue twice
	require.NoError(t, d.Register(ctx, h))
	assert.Equal(t, 1, d.Pending())

	got, err := d.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, h, *got)

	// idle queue returns nil after the poll interval
	got, err = d.Get(ctx)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryDirectoryBan(t *testing.T) {
	d := NewMemoryDirectory(0, 50*time.Millisecond)
	ctx := context.Background()
	registered := New("10.0.0.1", 9000, "")
	unregistered := New("10.0.0.2", 9000, "")

	require.NoError(t, d.Register(ctx, registered))
	_, _ = d.Get(ctx)
	d.Active(registered)
	assert.Equal(t, StateActive, d.Status(registered))

	d.Ban(registered)
	d.Ban(unregistered)

	assert.Equal(t, StateBanned, d.Status(registered))
	assert.ElementsMatch(t, []Host{registered, unregistered}, d.Banned())

	// only the registered host is retried
	got, err := d.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, registered, *got)
	assert.Equal(t, 0, d.Pending())
}

func TestMemoryDirectoryBanRetryDelay(t *testing.T) {
	d := NewMemoryDirectory(30*time.Millisecond, time.Second)
	ctx := context.Background()
	h := New("10.0.0.1", 9000, "")

	require.NoError(t, d.Register(ctx, h))
	_, _ = d.Get(ctx)

	d.Ban(h)
	assert.Equal(t, 0, d.Pending())

	start := time.Now()
	got, err := d.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestMemoryDirectoryDeregister(t *testing.T) {
	d := NewMemoryDirectory(0, 20*time.Millisecond)
	ctx := context.Background()
	h := New("10.0.0.1", 9000, "")

	require.NoError(t, d.Register(ctx, h))
	require.NoError(t, d.Deregister(ctx, h))
	assert.Equal(t, 0, d.Pending())
	assert.Empty(t, d.Registered())

	d.Ban(h)
	got, _ := d.Get(ctx)
	assert.Nil(t, got)
}

func TestMemoryDirectoryGetWakesUp(t *testing.T) {
	d := NewMemoryDirectory(0, 5*time.Second)
	ctx := context.Background()

	done := make(chan *Host)
	go func() {
		h, _ := d.Get(ctx)
		done <- h
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, d.Register(ctx, New("10.0.0.1", 1, "")))

	select {
	case h := <-done:
		require.NotNil(t, h)
	case <-time.After(time.Second):
		t.Fatal("Get did not wake up on enqueue")
	}
}

func TestMemoryDirectoryGetCancelled(t *testing.T) {
	d := NewMemoryDirectory(0, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := d.Get(ctx)
	assert.NoError(t, err)
	assert.Nil(t, h)
}

func TestMemoryDirectoryConcurrentRegister(t *testing.T) {
	d := NewMemoryDirectory(0, 20*time.Millisecond)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = d.Register(ctx, New(fmt.Sprintf("10.0.0.%d", i%5), 9000, ""))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, d.Pending())
}
