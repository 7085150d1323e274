// Package locks provides the advisory certification lock. A certification
// tree has single writer semantics: whoever holds the lock may mutate the
// tree, everyone else waits or fails fast.
package locks

import (
	"context"
	"sync"
	"time"

	id "attest/pkg/domain"
)

type Locker interface {
	// Acquire takes the lock for the owner. Returns false when someone else
	// holds it.
	Acquire(ctx context.Context, certID id.CertificationID, owner string, ttl time.Duration) (bool, error)

	// Release drops the lock if the owner still holds it.
	Release(ctx context.Context, certID id.CertificationID, owner string) error

	// Held reports whether anyone holds the lock.
	Held(ctx context.Context, certID id.CertificationID) (bool, error)
}

type memoryLock struct {
	owner   string
	expires time.Time
}

// InMemoryLocker is a process local Locker for tests and single node runs.
type InMemoryLocker struct {
	mu    sync.Mutex
	locks map[id.CertificationID]memoryLock
	clock func() time.Time
}

func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{
		locks: make(map[id.CertificationID]memoryLock),
		clock: time.Now,
	}
}

func (l *InMemoryLocker) Acquire(_ context.Context, certID id.CertificationID, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if held, ok := l.locks[certID]; ok && held.expires.After(now) && held.owner != owner {
		return false, nil
	}
	l.locks[certID] = memoryLock{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (l *InMemoryLocker) Release(_ context.Context, certID id.CertificationID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[certID]; ok && held.owner == owner {
		delete(l.locks, certID)
	}
	return nil
}

func (l *InMemoryLocker) Held(_ context.Context, certID id.CertificationID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	held, ok := l.locks[certID]
	return ok && held.expires.After(l.clock()), nil
}
