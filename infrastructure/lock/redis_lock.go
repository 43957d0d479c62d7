package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pc28/domain/interfaces"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// unlockLua deletes the key only while it still holds the caller's token
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisLocker implements interfaces.Locker with SET NX PX and a token-checked release
type RedisLocker struct {
	rdb      *redis.Client
	unlockSc *redis.Script
	prefix   string
}

// NewRedisLocker creates a locker backed by the given client
func NewRedisLocker(c *RedisClient) *RedisLocker {
	return &RedisLocker{
		rdb:      c.rdb,
		unlockSc: redis.NewScript(unlockLua),
		prefix:   "pc28:lock:",
	}
}

// Acquire obtains the lock for key or returns interfaces.ErrLockHeld.
// The lock expires after ttl if the holder never releases it.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lockKey := l.prefix + key

	ok, err := l.rdb.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, interfaces.ErrLockHeld
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := l.unlockSc.Run(releaseCtx, l.rdb, []string{lockKey}, token).Err(); err != nil {
				log.WithFields(log.Fields{
					"key":   key,
					"error": err,
				}).Warn("Failed to release lock, it will expire on its own")
			}
		})
	}

	return release, nil
}

var _ interfaces.Locker = (*RedisLocker)(nil)
