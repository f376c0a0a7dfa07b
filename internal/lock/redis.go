package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it is still owned by the caller's
// token, so an expired lease taken over by another replica is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// renewScript extends the lease only while the caller still owns it.
const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// ErrLockLost is logged when a lease expired before it was released.
var ErrLockLost = errors.New("lock lease expired before release")

// Redis is a Locker shared by every replica talking to the same Redis. The
// lock is a lease of ttl that the holder renews every ttl/3 until it
// unlocks, so a crashed holder frees the event after at most ttl. Exclusion
// is lost only if a renewal cannot reach Redis for a whole ttl; the holder
// then logs ErrLockLost.
type Redis struct {
	client        *redis.Client
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	newToken      func() string
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client:        client,
		prefix:        "lock:event:",
		ttl:           ttl,
		retryInterval: 25 * time.Millisecond,
		newToken:      uuid.NewString,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.prefix + key
	token := r.newToken()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(r.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	renewed := make(chan struct{})
	go r.keepAlive(redisKey, token, stop, renewed)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-renewed

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			n, err := r.client.Eval(ctx, releaseScript, []string{redisKey}, token).Int64()
			if err != nil {
				slog.Error("release redis lock", "key", redisKey, "error", err)
				return
			}
			if n == 0 {
				slog.Warn("release redis lock", "key", redisKey, "error", ErrLockLost)
			}
		})
	}, nil
}

// keepAlive renews the lease until stop is closed or the lease is lost.
func (r *Redis) keepAlive(redisKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		held, err := r.extend(redisKey, token)
		if err != nil {
			slog.Warn("renew redis lock", "key", redisKey, "error", err)
			continue
		}
		if !held {
			slog.Error("renew redis lock", "key", redisKey, "error", ErrLockLost)
			return
		}
	}
}

// extend pushes the lease expiry to ttl from now if token still owns it.
func (r *Redis) extend(redisKey, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
	defer cancel()

	n, err := r.client.Eval(ctx, renewScript, []string{redisKey}, token, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("extend %s: %w", redisKey, err)
	}
	return n == 1, nil
}

// NewRedisClient creates a Redis client from a redis:// URL or a bare
// host:port address and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}
