package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryCounterpartyLock serializes settlement runs per counterparty within
// a single process. Suitable for tests and single-instance deployments.
type InMemoryCounterpartyLock struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewInMemoryCounterpartyLock creates a new in-process lock
func NewInMemoryCounterpartyLock() *InMemoryCounterpartyLock {
	return &InMemoryCounterpartyLock{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// WithLock runs fn while holding the counterparty's lock
func (l *InMemoryCounterpartyLock) WithLock(ctx context.Context, counterpartyID uuid.UUID, fn func(ctx context.Context) error) error {
	mu := l.lockFor(counterpartyID)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (l *InMemoryCounterpartyLock) lockFor(counterpartyID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	mu, ok := l.locks[counterpartyID]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[counterpartyID] = mu
	}
	return mu
}
