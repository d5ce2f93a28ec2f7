package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	driverGeoKey    = "drivers:geo"
	bookingCacheTTL = 24 * time.Hour
)

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis with retry.
func NewClient(addr string) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err == nil {
			cancel()
			log.Println("Connected to Redis")
			return &Client{rdb: rdb}, nil
		}
		cancel()
		log.Printf("Waiting for Redis... (%d/20)", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("redis: failed to connect after 20 attempts")
}

// SetDriverLocation mirrors a driver's position into the GEO set. The
// database row stays authoritative; this copy feeds live tracking.
func (c *Client) SetDriverLocation(ctx context.Context, driverID string, lat, lng float64) error {
	return c.rdb.GeoAdd(ctx, driverGeoKey, &goredis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// RemoveDriverLocation drops a driver from the GEO set, e.g. when they
// go unavailable.
func (c *Client) RemoveDriverLocation(ctx context.Context, driverID string) error {
	return c.rdb.ZRem(ctx, driverGeoKey, driverID).Err()
}

// CacheBooking stores a booking projection in a hash keyed by booking code.
func (c *Client) CacheBooking(ctx context.Context, code string, data map[string]string) error {
	key := "booking:" + code
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, bookingCacheTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetCachedBooking retrieves a cached booking hash (empty map on miss).
func (c *Client) GetCachedBooking(ctx context.Context, code string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, "booking:"+code).Result()
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
