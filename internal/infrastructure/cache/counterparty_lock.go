package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stockbook/backend/internal/domain/shared"
	"github.com/stockbook/backend/internal/infrastructure/config"
)

// releaseScript deletes the lock key only if it still holds our token, so an
// instance whose lock expired cannot release a lock re-acquired by another.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisCounterpartyLock serializes settlement runs per counterparty across
// instances using a Redis SETNX lock with a TTL.
type RedisCounterpartyLock struct {
	client        *redis.Client
	keyPrefix     string
	ttl           time.Duration
	retryInterval time.Duration
	waitTimeout   time.Duration
}

// NewRedisCounterpartyLock creates a lock backed by the given Redis client
func NewRedisCounterpartyLock(client *redis.Client, cfg config.LockConfig) *RedisCounterpartyLock {
	return &RedisCounterpartyLock{
		client:        client,
		keyPrefix:     "settlement:lock:",
		ttl:           cfg.TTL,
		retryInterval: cfg.RetryInterval,
		waitTimeout:   cfg.WaitTimeout,
	}
}

// WithLock runs fn while holding the counterparty's lock. Acquisition polls
// until waitTimeout elapses; a lock that cannot be acquired in time is
// reported as a conflict.
func (l *RedisCounterpartyLock) WithLock(ctx context.Context, counterpartyID uuid.UUID, fn func(ctx context.Context) error) error {
	key := l.keyPrefix + counterpartyID.String()
	token := uuid.New().String()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}
	defer l.release(key, token)

	return fn(ctx)
}

func (l *RedisCounterpartyLock) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.waitTimeout)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire settlement lock: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return shared.ErrConcurrencyConflict
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
}

func (l *RedisCounterpartyLock) release(key, token string) {
	// Release must not inherit a cancelled request context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l.client.Eval(ctx, releaseScript, []string{key}, token)
}
