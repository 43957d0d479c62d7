package lock

import (
	"context"
	"sync"
	"time"

	"pc28/domain/interfaces"
)

// MemoryLocker implements interfaces.Locker within one process. It is the
// fallback when no Redis address is configured.
type MemoryLocker struct {
	mu     sync.Mutex
	held   map[string]memoryLease
	now    func() time.Time
	nextID uint64
}

type memoryLease struct {
	id        uint64
	expiresAt time.Time
}

// NewMemoryLocker creates an in-process locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]memoryLease),
		now:  time.Now,
	}
}

// Acquire obtains the lock for key or returns interfaces.ErrLockHeld.
// An expired lease is taken over.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, ok := l.held[key]; ok && now.Before(lease.expiresAt) {
		return nil, interfaces.ErrLockHeld
	}

	l.nextID++
	id := l.nextID
	l.held[key] = memoryLease{id: id, expiresAt: now.Add(ttl)}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if lease, ok := l.held[key]; ok && lease.id == id {
				delete(l.held, key)
			}
		})
	}
	return release, nil
}

var _ interfaces.Locker = (*MemoryLocker)(nil)
