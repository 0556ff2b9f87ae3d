package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/fundnav/pkg/config"
)

// The cache sits on the per-fund hot path and every miss falls through to the vendor,
// so a slow Redis must fail fast instead of stalling a valuation round.
const (
	dialTimeout   = 2 * time.Second
	ioTimeout     = 500 * time.Millisecond
	connectBudget = 3 * time.Second
)

// Client holds the optional Redis connection behind the quote cache and the shared rate limit.
// A disabled client (REDIS_ENABLED=false) makes every Cache and RateLimiter call a no-op.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb     *redis.Client
	addr    string
	enabled bool
}

// options maps RedisConfig onto go-redis options
func options(rc config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(rc.Host, rc.Port),
		Password:     rc.Password,
		DB:           rc.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
}

// New connects when Redis is enabled and verifies the connection with one ping.
// With Redis disabled it returns a usable no-op client and never dials.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{}, nil
	}

	opts := options(cfg.Redis)
	c := &Client{
		rdb:     redis.NewClient(opts),
		addr:    opts.Addr,
		enabled: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectBudget)
	defer cancel()
	if _, err := c.Ping(ctx); err != nil {
		c.rdb.Close()
		return nil, fmt.Errorf("redis connection to %s failed: %w", c.addr, err)
	}

	return c, nil
}

// Ping measures one round trip. A disabled client reports zero and no error.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	if !c.enabled {
		return 0, nil
	}
	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// Addr is the host:port dialled, empty when disabled
func (c *Client) Addr() string {
	return c.addr
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis returns the underlying go-redis client, nil when disabled
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
