package redisutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when another instance holds the lock for
// the same blood request.
var ErrLockNotAcquired = errors.New("request lock not acquired")

// Locker guards status transitions per blood request. The database CAS is
// the actual lifecycle invariant; the lock keeps two blood banks from racing
// through the accept flow and both seeing a stale PENDING read.
type Locker interface {
	WithRequestLock(ctx context.Context, requestID uuid.UUID, fn func(ctx context.Context) error) error
}

type requestLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRequestLocker creates a Locker backed by a per-request Redis key.
func NewRequestLocker(client *redis.Client, ttl time.Duration) Locker {
	return &requestLocker{client: client, ttl: ttl}
}

func (l *requestLocker) WithRequestLock(ctx context.Context, requestID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:blood_request:%s", requestID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire request lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

// unlockScript deletes the key only when it still holds our token, so an
// expired lock re-acquired by another instance is never released by us.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *requestLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release request lock: %w", err)
	}
	return nil
}

// NoopLocker runs the critical section without distributed locking. Used in
// development when no Redis is configured; the SQL CAS still protects the
// lifecycle invariant.
type NoopLocker struct{}

func (NoopLocker) WithRequestLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
