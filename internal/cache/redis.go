package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache is a read-through cache for the flight catalogue. A miss is
// reported as (nil, nil); callers fall back to the database.
type RedisCache struct {
	client        redis.UniversalClient
	flightsTTL    time.Duration
	redeleteAfter time.Duration
}

const defaultRedeleteAfter = 500 * time.Millisecond

type Option func(*RedisCache)

// WithRedeleteAfter sets the delay of the second delete issued by the
// invalidation methods. It removes entries written back by reads that
// loaded the row before the change committed. Zero disables it.
func WithRedeleteAfter(d time.Duration) Option {
	return func(c *RedisCache) {
		if d >= 0 {
			c.redeleteAfter = d
		}
	}
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration, opts ...Option) *RedisCache {
	return NewRedisCacheFromClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL,
		opts...,
	)
}

func NewRedisCacheFromClient(client redis.UniversalClient, flightsTTL time.Duration, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, flightsTTL: flightsTTL, redeleteAfter: defaultRedeleteAfter}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	var flights []domain.Flight
	found, err := c.get(ctx, flightsKey(), &flights)
	if err != nil || !found {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	return c.set(ctx, flightsKey(), flights)
}

func (c *RedisCache) GetFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	var flight domain.Flight
	found, err := c.get(ctx, flightKey(id), &flight)
	if err != nil || !found {
		return nil, err
	}
	return &flight, nil
}

func (c *RedisCache) SetFlight(ctx context.Context, flight *domain.Flight) error {
	return c.set(ctx, flightKey(flight.ID), flight)
}

// InvalidateFlight drops the cached flight and the cached list it belongs to.
func (c *RedisCache) InvalidateFlight(ctx context.Context, flightID int64) error {
	return c.invalidate(ctx, flightKey(flightID), flightsKey())
}

func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.invalidate(ctx, flightsKey())
}

func (c *RedisCache) invalidate(ctx context.Context, keys ...string) error {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	if c.redeleteAfter > 0 {
		time.AfterFunc(c.redeleteAfter, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = c.client.Del(ctx, keys...).Err()
		})
	}
	return nil
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.flightsTTL).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func flightKey(id int64) string {
	return fmt.Sprintf("cache:flight:%d", id)
}
