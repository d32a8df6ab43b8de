package locks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/pagetree/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "k")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Zero(t, l.held())
}

func TestLocal_IndependentKeys(t *testing.T) {
	l := NewLocal()
	u1, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	u2, err := l.Lock(context.Background(), "b")
	require.NoError(t, err)
	u1()
	u2()
	assert.Zero(t, l.held())
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocal_DoubleUnlockIsSafe(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	unlock()
	assert.Zero(t, l.held())
}

func TestLockAll_ReleasesOnFailure(t *testing.T) {
	l := NewLocal()
	held, err := l.Lock(context.Background(), "b")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = LockAll(ctx, l, "a", "b")
	require.Error(t, err)

	held()
	assert.Zero(t, l.held())

	release, err := LockAll(context.Background(), l, "a", "b")
	require.NoError(t, err)
	release()
	assert.Zero(t, l.held())
}

type fakeRedis struct {
	mu      sync.Mutex
	setnx   []bool
	busy    bool
	setErr  error
	evalErr error
	evals   []string
	keys    []string
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	ok := !f.busy
	if len(f.setnx) > 0 {
		ok, f.setnx = f.setnx[0], f.setnx[1:]
	}
	return redis.NewBoolResult(ok, nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals = append(f.evals, keys[0])
	return redis.NewCmdResult(int64(1), f.evalErr)
}

func TestRedisLocker_RetriesUntilFree(t *testing.T) {
	f := &fakeRedis{setnx: []bool{false, false, true}}
	l := NewRedisLocker(f, time.Second, logging.Nop{})
	l.retry = time.Millisecond

	unlock, err := l.Lock(context.Background(), "node:1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pagetree:lock:node:1", "pagetree:lock:node:1", "pagetree:lock:node:1"}, f.keys)

	unlock()
	assert.Equal(t, []string{"pagetree:lock:node:1"}, f.evals)
}

func TestRedisLocker_Errors(t *testing.T) {
	boom := errors.New("conn refused")
	l := NewRedisLocker(&fakeRedis{setErr: boom}, time.Second, logging.Nop{})
	_, err := l.Lock(context.Background(), "k")
	require.ErrorIs(t, err, boom)

	busy := &fakeRedis{busy: true}
	l = NewRedisLocker(busy, time.Second, logging.Nop{})
	l.retry = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLocker_ReleaseFailureIsLogged(t *testing.T) {
	f := &fakeRedis{evalErr: errors.New("gone")}
	l := NewRedisLocker(f, time.Second, logging.Nop{})
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	assert.NotPanics(t, unlock)
}
