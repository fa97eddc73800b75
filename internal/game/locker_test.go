package game_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/game"
)

func makeLocker(t *testing.T, timeout time.Duration) (*game.RedisLocker, *miniredis.Miniredis) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	return game.NewRedisLocker(game.RedisLockerConfig{
		Redis:   rc,
		Prefix:  "ecoquest",
		Timeout: timeout,
	}), rs
}

func TestRedisLocker_Lock(t *testing.T) {
	l, rs := makeLocker(t, 100*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "game:1")
	require.NoError(t, err)
	require.True(t, rs.Exists("ecoquest:lock:game:1"))

	_, err = l.Lock(ctx, "game:1")
	requireCode(t, err, errors.CodeAlreadyExists)
	require.Equal(t, "Conflict", errors.Convert(err).Kind())

	other, err := l.Lock(ctx, "game:2")
	require.NoError(t, err, "locks of different games are independent")
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	require.False(t, rs.Exists("ecoquest:lock:game:1"))

	again, err := l.Lock(ctx, "game:1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisLocker_UnlockKeepsForeignLock(t *testing.T) {
	l, rs := makeLocker(t, 100*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "game:1")
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the lock.
	require.NoError(t, rs.Set("ecoquest:lock:game:1", "someone-else"))

	require.NoError(t, unlock(ctx))
	v, err := rs.Get("ecoquest:lock:game:1")
	require.NoError(t, err)
	require.Equal(t, "someone-else", v)
}

func TestService_ConcurrentAddPlayer(t *testing.T) {
	l, _ := makeLocker(t, 5*time.Second)

	f := newFixture(t)
	f.svc = game.NewService(game.Config{
		Store:    f.store,
		EventBus: f.bus,
		Locker:   l,
		Now:      func() time.Time { return now },
	})
	f.addGame(t, domain.Game{GameID: 1, State: ptr(`{"Players":[]}`)})

	const n = 10
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := f.svc.AddPlayer(context.Background(), game.AddPlayerRequest{GameID: 1, Login: "p"})
			assert.NoError(t, err)
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ids, n, "every concurrent add gets its own id")
	for id := int64(1); id <= n; id++ {
		require.True(t, ids[id])
	}
}
