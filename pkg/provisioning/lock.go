package provisioning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

// ErrLockHeld is returned by a non-blocking Locker when another call holds the tenant.
var ErrLockHeld = errors.New("tenant lock held")

// Locker serializes Provision calls per tenant. Lock blocks until the tenant
// is free or ctx is done, unless the Locker is non-blocking, in which case it
// returns ErrLockHeld immediately. release must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, tenantID string) (release func(), err error)
}

// LocalLocker is an in-process Locker with one weighted semaphore per tenant.
type LocalLocker struct {
	nonBlocking bool

	mu      sync.Mutex
	tenants map[string]*tenantLock
}

type tenantLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewLocalLocker(nonBlocking bool) *LocalLocker {
	return &LocalLocker{
		nonBlocking: nonBlocking,
		tenants:     map[string]*tenantLock{},
	}
}

func (l *LocalLocker) Lock(ctx context.Context, tenantID string) (func(), error) {
	tl := l.ref(tenantID)

	var err error
	if l.nonBlocking {
		if !tl.sem.TryAcquire(1) {
			err = ErrLockHeld
		}
	} else {
		err = tl.sem.Acquire(ctx, 1)
	}
	if err != nil {
		l.unref(tenantID)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			tl.sem.Release(1)
			l.unref(tenantID)
		})
	}, nil
}

func (l *LocalLocker) ref(tenantID string) *tenantLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl, ok := l.tenants[tenantID]
	if !ok {
		tl = &tenantLock{sem: semaphore.NewWeighted(1)}
		l.tenants[tenantID] = tl
	}
	tl.refs++
	return tl
}

// unref drops the tenant entry once nobody holds or waits on it
func (l *LocalLocker) unref(tenantID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl := l.tenants[tenantID]
	tl.refs--
	if tl.refs == 0 {
		delete(l.tenants, tenantID)
	}
}

// DefaultLockTTL bounds how long a crashed holder can block a tenant
const DefaultLockTTL = 60 * time.Second

const redisLockPrefix = "identity:provision-lock"

// Deletes the key only if it still holds our token, so an expired holder
// never releases a lock that another process has since taken.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker serializes Provision calls across processes with SET NX PX.
type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	nonBlocking   bool
	logger        logrus.FieldLogger
}

// NewRedisLocker creates a RedisLocker. A zero ttl uses DefaultLockTTL.
func NewRedisLocker(client *redis.Client, ttl time.Duration, nonBlocking bool, logger logrus.FieldLogger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: 50 * time.Millisecond,
		nonBlocking:   nonBlocking,
		logger:        logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, tenantID string) (func(), error) {
	key := fmt.Sprintf("%s:%s", redisLockPrefix, tenantID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: redis lock: %w", store.ErrUnavailable, err)
		}
		if ok {
			break
		}
		if l.nonBlocking {
			return nil, ErrLockHeld
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be done; release regardless.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.WithError(err).WithField("tenant", tenantID).Warn("Failed to release tenant lock; it expires after its TTL")
			}
		})
	}, nil
}
