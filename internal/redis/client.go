// Package redis wraps the shared redis connection. Rate limiting on the API
// layer is the only consumer; the mirror itself never touches redis.
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *redis.Client
}

func New(dsn string) (*Client, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	// one sorted-set round trip per request, a handful of conns is plenty
	opts.PoolSize = 5
	opts.MinIdleConns = 1
	opts.ConnMaxIdleTime = 3 * time.Minute
	opts.ConnMaxLifetime = 30 * time.Minute

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SlidingWindow records one hit against key in a sorted set scored by unix
// time and reports whether the key stays within limit hits per window. When
// the limit is reached, retryAfter is how long until the oldest recorded hit
// leaves the window.
func (c *Client) SlidingWindow(ctx context.Context, key string, limit int64, window time.Duration) (allowed bool, retryAfter time.Duration, err error) {
	now := time.Now().Unix()
	windowSeconds := int64(window.Seconds())
	oldest := now - windowSeconds

	_ = c.rdb.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(oldest, 10)).Err()

	count, err := c.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}

	if count >= limit {
		retryAfter = window
		if head, headErr := c.rdb.ZRangeWithScores(ctx, key, 0, 0).Result(); headErr == nil && len(head) > 0 {
			remaining := windowSeconds - (now - int64(head[0].Score))
			if remaining < 0 {
				remaining = 0
			}
			retryAfter = time.Duration(remaining) * time.Second
		}
		return false, retryAfter, nil
	}

	_ = c.rdb.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: strconv.FormatInt(now, 10)}).Err()
	_ = c.rdb.Expire(ctx, key, window).Err()

	return true, 0, nil
}
