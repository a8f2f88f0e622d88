package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/parkandgreet/booking-backend/internal/config"
	"github.com/parkandgreet/booking-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisCache caches flight catalog responses and serves the externally
// maintained per-day booked-spots counters used by the date-range
// availability check.
type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

// NewRedisCache creates a Redis-backed cache from configuration
func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
	}
}

// GetFlights returns a cached catalog response for (direction, date), or nil
// when no entry exists.
func (c *RedisCache) GetFlights(ctx context.Context, direction, date string) ([]models.FlightRecord, error) {
	data, err := c.client.Get(ctx, flightsKey(direction, date)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flights []models.FlightRecord
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

// SetFlights caches a catalog response for (direction, date)
func (c *RedisCache) SetFlights(ctx context.Context, direction, date string, flights []models.FlightRecord) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(direction, date), payload, c.flightsTTL).Err()
}

// DayCounters returns the booked-spots counter for each of the given ISO
// dates. Dates without a counter are reported as zero. The counters are
// written by the back office, never by this service.
func (c *RedisCache) DayCounters(ctx context.Context, dates []string) (map[string]int, error) {
	if len(dates) == 0 {
		return map[string]int{}, nil
	}

	keys := make([]string, len(dates))
	for i, date := range dates {
		keys[i] = dayCounterKey(date)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read day counters: %w", err)
	}

	counters := make(map[string]int, len(dates))
	for i, value := range values {
		count := 0
		if s, ok := value.(string); ok {
			if parsed, err := strconv.Atoi(s); err == nil {
				count = parsed
			}
		}
		counters[dates[i]] = count
	}
	return counters, nil
}

// Ping verifies the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func flightsKey(direction, date string) string {
	return fmt.Sprintf("cache:flights:%s:%s", direction, date)
}

func dayCounterKey(date string) string {
	return fmt.Sprintf("capacity:day:%s", date)
}
