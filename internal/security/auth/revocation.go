package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisinfra "github.com/aryan0dhankhar/eventcrm/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/eventcrm/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/eventcrm/pkg/cache"
)

// ErrRevocationUnavailable is returned when the revocation list cannot be consulted.
var ErrRevocationUnavailable = errors.New("revocation list unavailable")

// RevocationStore records token IDs that must no longer be accepted.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationList keeps revoked token IDs in process memory until their expiry.
type MemoryRevocationList struct {
	entries *cache.Cache[struct{}]
	now     func() time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return NewMemoryRevocationListWithClock(time.Now)
}

func NewMemoryRevocationListWithClock(now func() time.Time) *MemoryRevocationList {
	return &MemoryRevocationList{entries: cache.NewWithClock[struct{}](now), now: now}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, until time.Time) error {
	if jti == "" {
		return fmt.Errorf("%w: token has no id", ErrInvalidToken)
	}
	ttl := until.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	l.entries.Purge()
	l.entries.Set(jti, struct{}{}, ttl)
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := l.entries.Get(jti)
	return ok, nil
}

// Sweep drops entries whose tokens have expired and returns how many were removed.
func (l *MemoryRevocationList) Sweep() int {
	return l.entries.Purge()
}

// Len is the number of entries held, including expired ones not yet swept.
func (l *MemoryRevocationList) Len() int {
	return l.entries.Len()
}

const revocationKeyPrefix = "eventcrm:revoked:"

// RedisRevocationList shares revoked token IDs across processes through Redis.
// Lookups go through a circuit breaker; an open breaker reports ErrRevocationUnavailable.
type RedisRevocationList struct {
	client  *redisinfra.Client
	breaker *circuitbreaker.CircuitBreaker
	now     func() time.Time
}

func NewRedisRevocationList(client *redisinfra.Client, breaker *circuitbreaker.CircuitBreaker) *RedisRevocationList {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	}
	return &RedisRevocationList{client: client, breaker: breaker, now: time.Now}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return fmt.Errorf("%w: token has no id", ErrInvalidToken)
	}
	ttl := until.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	err := l.breaker.Execute(func() error {
		return l.client.Set(ctx, revocationKeyPrefix+jti, "1", ttl)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := l.breaker.Execute(func() error {
		found, err := l.client.Exists(ctx, revocationKeyPrefix+jti)
		revoked = found
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	return revoked, nil
}
