package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pagetree/internal/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// RedisClient is the part of *redis.Client the locker needs.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// RedisLocker is a Locker shared by every process using the same Redis.
// A lock expires after ttl if its holder dies without releasing it.
type RedisLocker struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	log    logging.Logger
}

func NewRedisLocker(client RedisClient, ttl time.Duration, log logging.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: "pagetree:lock:",
		ttl:    ttl,
		retry:  20 * time.Millisecond,
		log:    log.With("module", "locks"),
	}
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func() {
		// The caller's ctx may already be cancelled; release regardless.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.client.Eval(rctx, releaseScript, []string{k}, token).Err(); err != nil {
			l.log.Warn(rctx, "lock release failed", "key", key, "error", err)
		}
	}, nil
}
