package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ryandem1/minesweeper-async/core"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" env:"ADDR"`
	Password     string        `json:"password" env:"PASSWORD"`
	DB           int           `json:"db" env:"DB"`
	KeyPrefix    string        `json:"key_prefix" env:"KEY_PREFIX"`
	PoolSize     int           `json:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		KeyPrefix:    "sweeper",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store keeps the running score in Redis so several processes can share it.
// Data structure:
// - {prefix}:score:total  -> float (running total)
// - {prefix}:score:checks -> int64 (credited boards)
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a new Redis-backed score store with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(client, config.KeyPrefix), nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "sweeper"
	}
	return &Store{client: client, prefix: prefix}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) totalKey() string  { return s.prefix + ":score:total" }
func (s *Store) checksKey() string { return s.prefix + ":score:checks" }

// addScoreScript credits a check and bumps the counter atomically.
var addScoreScript = redis.NewScript(`
	local total = redis.call('INCRBYFLOAT', KEYS[1], ARGV[1])
	redis.call('INCR', KEYS[2])
	return total
`)

// Add credits delta to the shared total and returns the new total.
func (s *Store) Add(ctx context.Context, delta float64) (float64, error) {
	if _, err := core.AddScore(0, delta); err != nil {
		return 0, err
	}
	res, err := addScoreScript.Run(ctx, s.client, []string{s.totalKey(), s.checksKey()},
		strconv.FormatFloat(delta, 'f', -1, 64)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to add score: %w", err)
	}
	raw, ok := res.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected result type %T from Redis script", res)
	}
	total, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse score total %q: %w", raw, err)
	}
	return total, nil
}

// Total returns the running total, 0 when nothing was credited yet.
func (s *Store) Total(ctx context.Context) (float64, error) {
	total, err := s.client.Get(ctx, s.totalKey()).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get score: %w", err)
	}
	return total, nil
}

// Checks returns the number of credited boards.
func (s *Store) Checks(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, s.checksKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get check count: %w", err)
	}
	return n, nil
}

// Ping verifies connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
