package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/telemetry"
)

const (
	defaultLockTTL     = 10 * time.Second
	defaultLockTimeout = 5 * time.Second
	lockRetryInterval  = 20 * time.Millisecond
)

// Locker serializes mutations of one game across service instances.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

type Unlock func(ctx context.Context) error

// unlockScript deletes the lock only while it still holds our token, so an
// expired lock taken over by another holder is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLockerConfig struct {
	Redis   redis.UniversalClient
	Prefix  string
	TTL     time.Duration
	Timeout time.Duration
}

// RedisLocker is a Locker built on SET NX PX with a random token per holder.
type RedisLocker struct {
	redis   redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

func NewRedisLocker(c RedisLockerConfig) *RedisLocker {
	l := &RedisLocker{
		redis:   c.Redis,
		prefix:  c.Prefix,
		ttl:     c.TTL,
		timeout: c.Timeout,
	}
	if l.ttl <= 0 {
		l.ttl = defaultLockTTL
	}
	if l.timeout <= 0 {
		l.timeout = defaultLockTimeout
	}
	return l
}

// Lock blocks until key is acquired. It fails with a Conflict error when the
// key stays taken for longer than the configured timeout.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	start := time.Now()
	defer func() {
		telemetry.GameLockWait.Observe(time.Since(start).Seconds())
	}()

	k := l.key(key)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	t := time.NewTicker(lockRetryInterval)
	defer t.Stop()

	for {
		ok, err := l.redis.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				return unlockScript.Run(ctx, l.redis, []string{k}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("%s is being modified by another request, try again", key),
				errors.WithCause(ctx.Err()))
		case <-t.C:
		}
	}
}

func (l *RedisLocker) key(key string) string {
	return fmt.Sprintf("%s:lock:%s", l.prefix, key)
}
