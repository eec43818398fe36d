package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mksagencies/storefront-backend/internal/products"
	"github.com/mksagencies/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func product(id, name, price string) products.SnapshotInput {
	return products.SnapshotInput{
		ProductID: id,
		Slug:      id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Image:     "https://storage.googleapis.com/mks/" + id + ".jpg",
	}
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestAddItemIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, svc.AddItem(ctx, user, product("shatavari", "Shatavari", "349")))
	require.NoError(t, svc.AddItem(ctx, user, product("shatavari", "Shatavari Renamed", "299")))

	entries, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Shatavari", entries[0].Name)
	assert.Equal(t, []string{"https://storage.googleapis.com/mks/shatavari.jpg"}, entries[0].Images)
	assert.False(t, entries[0].AddedAt.IsZero())
}

func TestAddItemRequiresProductID(t *testing.T) {
	svc := newTestService(t)

	err := svc.AddItem(context.Background(), uuid.New(), products.SnapshotInput{Name: "Nameless"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRemoveAndClear(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, svc.AddItem(ctx, user, product("shatavari", "Shatavari", "349")))
	require.NoError(t, svc.AddItem(ctx, user, product("guduchi", "Guduchi", "259")))

	require.NoError(t, svc.RemoveItem(ctx, user, "shatavari"))
	entries, err := svc.List(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"guduchi"}, ids(entries))

	require.NoError(t, svc.Clear(ctx, user))
	entries, err = svc.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = svc.RemoveItem(ctx, user, " ")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestReconcileIsUnion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, svc.AddItem(ctx, user, product("shatavari", "Shatavari", "349")))

	merged, err := svc.Reconcile(ctx, user, []products.SnapshotInput{
		product("shatavari", "Shatavari", "349"),
		product("guduchi", "Guduchi", "259"),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"shatavari", "guduchi"}, ids(merged))

	again, err := svc.Reconcile(ctx, user, []products.SnapshotInput{product("guduchi", "Guduchi", "259")})
	require.NoError(t, err)
	assert.Len(t, again, 2)
}
