// Package redis provides a host directory and reconnection work queue backed by Redis,
// so several processes can share the same set of hosts and their ban state.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// Config for the Redis backed directory. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: DRPC_HOSTS_KEY_PREFIX
	KeyPrefix string `env:"DRPC_HOSTS_KEY_PREFIX,default=drpc:hosts:"`
	// PollInterval bounds how long Get blocks. ENV: DRPC_HOSTS_POLL
	PollInterval time.Duration `env:"DRPC_HOSTS_POLL,default=1s"`
	// OpTimeout bounds Ban and Active, which have no context. ENV: DRPC_HOSTS_OP_TIMEOUT
	OpTimeout time.Duration `env:"DRPC_HOSTS_OP_TIMEOUT,default=2s"`
	// RetryDelay is the pause between a ban and the re-enqueue of a registered host.
	// It is honored with PollInterval granularity. ENV: DRPC_HOSTS_RETRY_DELAY
	RetryDelay time.Duration `env:"DRPC_HOSTS_RETRY_DELAY,default=1s"`
}

// Directory implements host.IHostDirectory, host.IHostQueue and host.IHostRegistry
type Directory struct {
	client       *redis.Client
	keyPrefix    string
	pollInterval time.Duration
	opTimeout    time.Duration
	retryDelay   time.Duration
}

// New connects to Redis and creates a directory
func New(cfg Config) (*Directory, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(cl, cfg), nil
}

// NewWithClient creates a directory on an existing client
func NewWithClient(cl *redis.Client, cfg Config) *Directory {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "drpc:hosts:"
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Directory{
		client:       cl,
		keyPrefix:    prefix,
		pollInterval: poll,
		opTimeout:    opTimeout,
		retryDelay:   retryDelay,
	}
}

// NewFromEnv builds a directory using envdecode to populate Config.
func NewFromEnv() (*Directory, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode redis config: %w", err)
	}
	return New(cfg)
}

// Close closes the Redis client.
func (d *Directory) Close() error { return d.client.Close() }

// --- Key helpers ---

func (d *Directory) registeredKey() string { return d.keyPrefix + "registered" }
func (d *Directory) bannedKey() string     { return d.keyPrefix + "banned" }
func (d *Directory) activeKey() string     { return d.keyPrefix + "active" }
func (d *Directory) queuedKey() string     { return d.keyPrefix + "queued" }
func (d *Directory) queueKey() string      { return d.keyPrefix + "queue" }
func (d *Directory) delayedKey() string    { return d.keyPrefix + "delayed" }

func encodeHost(h host.Host) string {
	// Host only has string and int fields, Marshal cannot fail
	b, _ := json.Marshal(h)
	return string(b)
}

func decodeHost(s string) (host.Host, error) {
	var h host.Host
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return h, fmt.Errorf("decode host %q: %w", s, err)
	}
	return h, nil
}

// --- Registry ---

func (d *Directory) Register(ctx context.Context, h host.Host) error {
	member := encodeHost(h)
	if err := d.client.SAdd(ctx, d.registeredKey(), member).Err(); err != nil {
		return fmt.Errorf("register %s: %w", h, err)
	}
	return d.enqueue(ctx, member)
}

func (d *Directory) Deregister(ctx context.Context, h host.Host) error {
	member := encodeHost(h)
	_, err := d.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SRem(ctx, d.registeredKey(), member)
		p.SRem(ctx, d.bannedKey(), member)
		p.SRem(ctx, d.activeKey(), member)
		p.SRem(ctx, d.queuedKey(), member)
		p.LRem(ctx, d.queueKey(), 0, member)
		p.ZRem(ctx, d.delayedKey(), member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deregister %s: %w", h, err)
	}
	return nil
}

// --- Directory ---

func (d *Directory) Ban(h host.Host) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opTimeout)
	defer cancel()

	member := encodeHost(h)
	var registered *redis.BoolCmd
	_, err := d.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SRem(ctx, d.activeKey(), member)
		p.SAdd(ctx, d.bannedKey(), member)
		registered = p.SIsMember(ctx, d.registeredKey(), member)
		return nil
	})
	if err != nil {
		host.Logger.Warningf("redis ban of %s failed: %v", h, err)
		return
	}
	if !registered.Val() {
		return
	}

	// re-enqueued by Get once the retry delay passed, a pending retry is not postponed
	due := time.Now().Add(d.retryDelay).UnixMilli()
	err = d.client.ZAddNX(ctx, d.delayedKey(), redis.Z{Score: float64(due), Member: member}).Err()
	if err != nil {
		host.Logger.Warningf("redis delayed enqueue of %s failed: %v", h, err)
	}
}

func (d *Directory) Active(h host.Host) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opTimeout)
	defer cancel()

	member := encodeHost(h)
	_, err := d.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SRem(ctx, d.bannedKey(), member)
		p.SAdd(ctx, d.activeKey(), member)
		return nil
	})
	if err != nil {
		host.Logger.Warningf("redis activate of %s failed: %v", h, err)
	}
}

// --- Queue ---

func (d *Directory) Get(ctx context.Context) (*host.Host, error) {
	if err := d.promote(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis promote: %w", err)
	}

	res, err := d.client.BLPop(ctx, d.pollInterval, d.queueKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis pop: %w", err)
	}
	if len(res) != 2 {
		return nil, nil
	}
	member := res[1]

	// the queued marker must be cleared even if ctx ended meanwhile, otherwise enqueue skips the host
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opTimeout)
	defer cancel()
	if err := d.client.SRem(opCtx, d.queuedKey(), member).Err(); err != nil {
		host.Logger.Errorf("redis clear queued marker of %s failed: %v", member, err)
	}

	h, err := decodeHost(member)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// --- State queries ---

// Banned returns all currently banned hosts
func (d *Directory) Banned(ctx context.Context) ([]host.Host, error) {
	return d.members(ctx, d.bannedKey())
}

// ActiveHosts returns all currently active hosts
func (d *Directory) ActiveHosts(ctx context.Context) ([]host.Host, error) {
	return d.members(ctx, d.activeKey())
}

func (d *Directory) members(ctx context.Context, key string) ([]host.Host, error) {
	members, err := d.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	hosts := make([]host.Host, 0, len(members))
	for _, m := range members {
		h, err := decodeHost(m)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}

// promote moves the banned hosts whose retry delay passed onto the queue. ZRem decides
// which process promotes a host.
func (d *Directory) promote(ctx context.Context) error {
	due, err := d.client.ZRangeByScore(ctx, d.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return err
	}

	for _, member := range due {
		removed, err := d.client.ZRem(ctx, d.delayedKey(), member).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := d.enqueue(ctx, member); err != nil {
			return err
		}
	}
	return nil
}

// enqueue pushes the host to the queue unless it is already queued
func (d *Directory) enqueue(ctx context.Context, member string) error {
	added, err := d.client.SAdd(ctx, d.queuedKey(), member).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return nil
	}
	return d.client.RPush(ctx, d.queueKey(), member).Err()
}
