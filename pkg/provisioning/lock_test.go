package provisioning

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesTenant(t *testing.T) {
	locker := NewLocalLocker(false)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), "acme")
			require.NoError(t, err)
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, locker.tenants, "entries are dropped once unused")
}

func TestLocalLockerTenantsAreIndependent(t *testing.T) {
	locker := NewLocalLocker(true)

	releaseA, err := locker.Lock(context.Background(), "acme")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Lock(context.Background(), "globex")
	require.NoError(t, err)
	releaseB()
}

func TestLocalLockerNonBlocking(t *testing.T) {
	locker := NewLocalLocker(true)

	release, err := locker.Lock(context.Background(), "acme")
	require.NoError(t, err)

	_, err = locker.Lock(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	release() // idempotent

	release, err = locker.Lock(context.Background(), "acme")
	require.NoError(t, err)
	release()
}

func TestLocalLockerRespectsContext(t *testing.T) {
	locker := NewLocalLocker(false)

	release, err := locker.Lock(context.Background(), "acme")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Lock(ctx, "acme")
	assert.ErrorIs(t, err, context.Canceled)
}

func newTestRedisLocker(t *testing.T, nonBlocking bool) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	logger, _ := test.NewNullLogger()
	locker := NewRedisLocker(client, time.Minute, nonBlocking, logger)
	locker.retryInterval = 5 * time.Millisecond
	return locker, mr
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	locker, mr := newTestRedisLocker(t, true)

	release, err := locker.Lock(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, mr.Exists("identity:provision-lock:acme"))

	_, err = locker.Lock(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	assert.False(t, mr.Exists("identity:provision-lock:acme"))
}

func TestRedisLockerBlocksUntilReleased(t *testing.T) {
	locker, _ := newTestRedisLocker(t, false)

	release, err := locker.Lock(context.Background(), "acme")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(context.Background(), "acme")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(30 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock was not acquired after release")
	}
}

func TestRedisLockerRespectsContext(t *testing.T) {
	locker, _ := newTestRedisLocker(t, false)

	release, err := locker.Lock(context.Background(), "acme")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "acme")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	locker, mr := newTestRedisLocker(t, true)

	release, err := locker.Lock(context.Background(), "acme")
	require.NoError(t, err)

	// The first holder outlives its TTL and another process takes over
	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set("identity:provision-lock:acme", "someone-else"))

	release()

	value, err := mr.Get("identity:provision-lock:acme")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}

func TestRedisLockerUnavailable(t *testing.T) {
	locker, mr := newTestRedisLocker(t, true)
	mr.Close()

	_, err := locker.Lock(context.Background(), "acme")
	require.Error(t, err)
	kind, _ := KindOf(wrap("acme", err))
	assert.Equal(t, StoreUnavailable, kind)
}
