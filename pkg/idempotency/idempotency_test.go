package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	claimed     map[string]bool
	setNXError  error
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{claimed: map[string]bool{}}
}

func (f *fakeStore) Get(context.Context, string) (string, error) { return "", nil }

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.setNXError != nil {
		return false, f.setNXError
	}
	f.lastTTL = ttl
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "mks:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.claimed, k)
		f.lastDeleted = k
	}
	return nil
}

func TestClaimOnlyOnce(t *testing.T) {
	store := newFakeStore()
	guard, err := NewGuard(store, 24*time.Hour)
	require.NoError(t, err)

	id := uuid.New()
	first, err := guard.Claim(context.Background(), "mailer", id)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 24*time.Hour, store.lastTTL)

	second, err := guard.Claim(context.Background(), "mailer", id)
	require.NoError(t, err)
	assert.False(t, second)

	other, err := guard.Claim(context.Background(), "audit", id)
	require.NoError(t, err)
	assert.True(t, other, "claims are scoped per consumer")
}

func TestReleaseAllowsReclaim(t *testing.T) {
	store := newFakeStore()
	guard, err := NewGuard(store, time.Hour)
	require.NoError(t, err)

	id := uuid.New()
	_, err = guard.Claim(context.Background(), "mailer", id)
	require.NoError(t, err)
	require.NoError(t, guard.Release(context.Background(), "mailer", id))
	assert.Equal(t, "mks:idempotency:handled:mailer:"+id.String(), store.lastDeleted)

	again, err := guard.Claim(context.Background(), "mailer", id)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestClaimValidatesInput(t *testing.T) {
	guard, err := NewGuard(newFakeStore(), time.Hour)
	require.NoError(t, err)

	_, err = guard.Claim(context.Background(), "", uuid.New())
	assert.Error(t, err)
	_, err = guard.Claim(context.Background(), "mailer", uuid.Nil)
	assert.Error(t, err)
}

func TestClaimPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.setNXError = errors.New("redis down")
	guard, err := NewGuard(store, time.Hour)
	require.NoError(t, err)

	_, err = guard.Claim(context.Background(), "mailer", uuid.New())
	assert.EqualError(t, err, "redis down")
}

func TestNewGuardRequiresStore(t *testing.T) {
	_, err := NewGuard(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newFakeStore(), -time.Second)
	assert.Error(t, err)
}
