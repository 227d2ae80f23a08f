// Package lease provides mutual exclusion over browser sessions so that two runs never
// drive the same session at once.
package lease

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHeld is returned by Acquire when another holder owns the lease.
var ErrHeld = errors.New("lease is held")

// Release gives a lease back. Releasing an expired or stolen lease is not an error.
type Release func(ctx context.Context) error

// Locker hands out exclusive, expiring leases by key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// MemoryLocker is a Locker for a single process.
type MemoryLocker struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	leases map[string]memoryLease
	nextID uint64
}

type memoryLease struct {
	id      uint64
	expires time.Time
}

// NewMemoryLocker creates an in-process locker. A zero ttl means leases never expire.
func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	return &MemoryLocker{
		ttl:    ttl,
		now:    time.Now,
		leases: make(map[string]memoryLease),
	}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if current, ok := l.leases[key]; ok && (current.expires.IsZero() || now.Before(current.expires)) {
		return nil, ErrHeld
	}

	l.nextID++
	held := memoryLease{id: l.nextID}

	if l.ttl > 0 {
		held.expires = now.Add(l.ttl)
	}

	l.leases[key] = held

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()

		if current, ok := l.leases[key]; ok && current.id == held.id {
			delete(l.leases, key)
		}

		return nil
	}, nil
}
