package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/inventory-backend/pkg/config"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
)

const (
	defaultKeyPrefix  = "inventory"
	idempotencyPrefix = "idem"
)

var errNotInitialized = errors.New("redis client not initialized")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	SetXX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// IdempotencyStore keeps request outcomes keyed by Idempotency-Key.
//
// A key moves through Reserve (pending marker, only if absent), then either
// Commit (final record) or Release (key dropped so the client can retry).
type IdempotencyStore interface {
	IdempotencyKey(scope, id string) string
	Load(ctx context.Context, key string) (string, bool, error)
	Reserve(ctx context.Context, key, marker string, ttl time.Duration) (bool, error)
	Commit(ctx context.Context, key, record string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// Client is the redis-backed IdempotencyStore. It also answers readiness
// checks.
type Client struct {
	store  cmdable
	raw    *redis.Client
	prefix string
}

var _ IdempotencyStore = (*Client)(nil)

// New dials redis with the configured pool and timeouts and pings it once.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"redis_addr": opts.Addr,
			"redis_db":   opts.DB,
		}), "redis connection established")
	}
	return &Client{store: raw, raw: raw, prefix: keyPrefix(cfg.KeyPrefix)}, nil
}

// NewFromClient wraps an existing go-redis client using the default key
// prefix.
func NewFromClient(raw *redis.Client) *Client {
	return &Client{store: raw, raw: raw, prefix: defaultKeyPrefix}
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case strings.TrimSpace(cfg.URL) != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case strings.TrimSpace(cfg.Address) != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	// values from the url take precedence over the discrete settings
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// IdempotencyKey namespaces a client key under a digest of its scope. Owner
// ids and request paths are unbounded, so only their hash reaches redis.
func (c *Client) IdempotencyKey(scope, id string) string {
	sum := sha256.Sum256([]byte(scope))
	parts := []string{keyPrefix(c.prefix), idempotencyPrefix, hex.EncodeToString(sum[:16])}
	if id = strings.TrimSpace(id); id != "" {
		parts = append(parts, id)
	}
	return strings.Join(parts, ":")
}

// Load returns the stored value and whether the key exists.
func (c *Client) Load(ctx context.Context, key string) (string, bool, error) {
	if c.store == nil {
		return "", false, errNotInitialized
	}
	value, err := c.store.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load %s: %w", key, err)
	}
	return value, true, nil
}

// Reserve writes the marker only when the key is absent.
func (c *Client) Reserve(ctx context.Context, key, marker string, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	ok, err := c.store.SetNX(ctx, key, marker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", key, err)
	}
	return ok, nil
}

// Commit replaces a reservation with the final record. A reservation that
// already expired is recreated so the outcome is still replayable.
func (c *Client) Commit(ctx context.Context, key, record string, ttl time.Duration) error {
	if c.store == nil {
		return errNotInitialized
	}
	replaced, err := c.store.SetXX(ctx, key, record, ttl).Result()
	if err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	if replaced {
		return nil
	}
	if err := c.store.Set(ctx, key, record, ttl).Err(); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

// Release drops a reservation.
func (c *Client) Release(ctx context.Context, key string) error {
	if c.store == nil {
		return errNotInitialized
	}
	if err := c.store.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func keyPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		return defaultKeyPrefix
	}
	return prefix
}
