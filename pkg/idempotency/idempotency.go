package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mksagencies/storefront-backend/pkg/redis"
)

// Guard remembers which events a consumer has already handled using Redis
// SETNX with a TTL. Keys look like `mks:idempotency:handled:<consumer>:<event_id>`.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim marks the event as handled for consumer. It returns false when another
// delivery already claimed it, in which case the caller must skip the event.
func (g *Guard) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
}

// Release forgets a claim.
func (g *Guard) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(fmt.Sprintf("handled:%s", consumer), eventID.String()), nil
}
