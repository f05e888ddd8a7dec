package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sadopc/worktime/internal/metrics"
)

// RedisOptions configures the shared de-duplication store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisDedup de-duplicates notifications across processes with SET NX EX.
// When Redis is unreachable notifications are forwarded.
type RedisDedup struct {
	client *redis.Client
	next   Sink
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// OpenRedis connects and pings the Redis server.
func OpenRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewRedisDedup(client *redis.Client, next Sink, opts RedisOptions, logger zerolog.Logger) *RedisDedup {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "worktime:notify:"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisDedup{
		client: client,
		next:   next,
		ttl:    ttl,
		prefix: prefix,
		logger: logger.With().Str("component", "notify-redis").Logger(),
	}
}

func (d *RedisDedup) Notify(ctx context.Context, category, title, body string) error {
	key := d.prefix + category + ":" + title
	fresh, err := d.client.SetNX(ctx, key, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("Redis de-duplication unavailable, forwarding")
		return d.next.Notify(ctx, category, title, body)
	}
	if !fresh {
		metrics.Notifications.WithLabelValues("redis", "suppressed").Inc()
		return nil
	}
	err = d.next.Notify(ctx, category, title, body)
	if !delivered(err) {
		// Allow a retry on the next tick.
		_ = d.client.Del(ctx, key).Err()
	}
	return err
}
