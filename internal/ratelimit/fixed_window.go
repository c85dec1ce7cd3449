package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "bookstore:ratelimit"
	redisTimeout  = 2 * time.Second
)

// FixedWindowLimiter counts requests per client in Redis, one counter per window slot
type FixedWindowLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewFixedWindowLimiter connects to Redis at addr
func NewFixedWindowLimiter(addr, password, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	switch {
	case limit <= 0:
		return nil, errors.New("rate limit must be positive")
	case window < time.Millisecond:
		return nil, errors.New("rate window must be at least 1ms")
	case strings.TrimSpace(addr) == "":
		return nil, errors.New("redis address is required")
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = defaultPrefix
	}

	return &FixedWindowLimiter{
		client: redis.NewClient(&redis.Options{Addr: strings.TrimSpace(addr), Password: password}),
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}, nil
}

// slotKey names the counter of client for the window containing t
func (l *FixedWindowLimiter) slotKey(client string, t time.Time) string {
	slot := t.UnixMilli() / l.window.Milliseconds()
	return l.prefix + ":" + client + ":" + strconv.FormatInt(slot, 10)
}

// Allow counts one request for client. Redis errors deny the request.
func (l *FixedWindowLimiter) Allow(ctx context.Context, client string) bool {
	if client = strings.TrimSpace(client); client == "" {
		client = "unknown"
	}
	key := l.slotKey(client, l.now())

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	// The counter outlives its slot by at most one window
	var hits *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hits = pipe.Incr(ctx, key)
		pipe.PExpire(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return false
	}
	return hits.Val() <= l.limit
}

// Close releases the Redis client
func (l *FixedWindowLimiter) Close() error {
	return l.client.Close()
}
