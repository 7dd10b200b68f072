package redis

import (
	"context"
	"testing"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T) *Directory {
	// Skip test if Redis is not available
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   3, // Use separate DB for host directory tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		_ = client.Close()
	})

	return NewWithClient(client, Config{
		KeyPrefix:    "drpc:test:",
		PollInterval: time.Second,
		RetryDelay:   200 * time.Millisecond,
	})
}

func TestRegisterAndGet(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()
	h := host.New("10.0.0.1", 9000, "s1")

	require.NoError(t, d.Register(ctx, h))
	require.NoError(t, d.Register(ctx, h))

	got, err := d.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, h, *got)

	// queued only once
	got, err = d.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBanAndActive(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()
	registered := host.New("10.0.0.1", 9000, "")
	unregistered := host.New("10.0.0.2", 9000, "")

	require.NoError(t, d.Register(ctx, registered))
	_, _ = d.Get(ctx)

	d.Active(registered)
	active, err := d.ActiveHosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []host.Host{registered}, active)

	d.Ban(registered)
	d.Ban(unregistered)

	banned, err := d.Banned(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []host.Host{registered, unregistered}, banned)

	// only the registered host comes back, after the retry delay
	var got *host.Host
	require.Eventually(t, func() bool {
		got, err = d.Get(ctx)
		return err == nil && got != nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, registered, *got)

	got, err = d.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeregister(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()
	h := host.New("10.0.0.1", 9000, "")

	require.NoError(t, d.Register(ctx, h))
	require.NoError(t, d.Deregister(ctx, h))

	got, err := d.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	d.Ban(h)
	got, err = d.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBanWaitsRetryDelay(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()
	h := host.New("10.0.0.1", 9000, "")

	require.NoError(t, d.Register(ctx, h))
	got, err := d.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	// a refused host is not handed out again right away
	banned := time.Now()
	d.Ban(h)
	d.Ban(h)
	got, err = d.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.Eventually(t, func() bool {
		got, err = d.Get(ctx)
		return err == nil && got != nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, h, *got)
	assert.GreaterOrEqual(t, time.Since(banned), 200*time.Millisecond)

	// queued once, even though it was banned twice
	got, err = d.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
