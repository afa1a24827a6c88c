// Package redis is the bot's Redis persistence: a small JSON key/value store
// used to mirror settings and cache dominance lookups, guarded by a circuit
// breaker so an unreachable Redis degrades to in-memory operation.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	Timeout  time.Duration // per-call timeout; default 2s
}

// Store reads and writes JSON values.
type Store struct {
	client  *goredis.Client
	breaker *CircuitBreaker
	timeout time.Duration
}

// New connects to Redis and pings it.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	return NewWithClient(client, cfg.Timeout), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	cb := NewCircuitBreaker(5, 10*time.Second)
	cb.IsFailure = func(err error) bool { return !errors.Is(err, goredis.Nil) }
	return &Store{client: client, breaker: cb, timeout: timeout}
}

// Client returns the underlying client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// Breaker returns the store's circuit breaker.
func (s *Store) Breaker() *CircuitBreaker { return s.breaker }

// GetJSON decodes key into v. found is false when the key does not exist.
func (s *Store) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	var raw []byte
	err := s.breaker.Execute(func() error {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		b, err := s.client.Get(cctx, key).Bytes()
		raw = b
		return err
	})
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key with no expiry.
func (s *Store) SetJSON(ctx context.Context, key string, v any) error {
	return s.SetJSONTTL(ctx, key, v, 0)
}

// SetJSONTTL stores v under key, expiring after ttl (0 = never).
func (s *Store) SetJSONTTL(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	err = s.breaker.Execute(func() error {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.client.Set(cctx, key, data, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity, bypassing the breaker.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
