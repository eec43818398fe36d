package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/mksagencies/storefront-backend/internal/cart"
	"github.com/mksagencies/storefront-backend/internal/products"
	"github.com/mksagencies/storefront-backend/internal/wishlist"
)

// CartView is the session's cart.
type CartView struct {
	userID uuid.UUID
	svc    cart.Service
}

func (c *CartView) List(ctx context.Context) ([]cart.Line, error) {
	return c.svc.List(ctx, c.userID)
}

func (c *CartView) Add(ctx context.Context, product products.SnapshotInput, quantity int) error {
	return c.svc.AddItem(ctx, c.userID, product, quantity)
}

func (c *CartView) Update(ctx context.Context, productID string, quantity int) error {
	return c.svc.UpdateQuantity(ctx, c.userID, productID, quantity)
}

func (c *CartView) Remove(ctx context.Context, productID string) error {
	return c.svc.RemoveItem(ctx, c.userID, productID)
}

func (c *CartView) Clear(ctx context.Context) error {
	return c.svc.Clear(ctx, c.userID)
}

func (c *CartView) Sync(ctx context.Context, local []cart.SyncItem) ([]cart.Line, error) {
	return c.svc.Reconcile(ctx, c.userID, local)
}

// WishlistView is the session's wishlist.
type WishlistView struct {
	userID uuid.UUID
	svc    wishlist.Service
}

func (w *WishlistView) List(ctx context.Context) ([]wishlist.Entry, error) {
	return w.svc.List(ctx, w.userID)
}

func (w *WishlistView) Add(ctx context.Context, product products.SnapshotInput) error {
	return w.svc.AddItem(ctx, w.userID, product)
}

func (w *WishlistView) Remove(ctx context.Context, productID string) error {
	return w.svc.RemoveItem(ctx, w.userID, productID)
}

func (w *WishlistView) Clear(ctx context.Context) error {
	return w.svc.Clear(ctx, w.userID)
}

func (w *WishlistView) Sync(ctx context.Context, local []products.SnapshotInput) ([]wishlist.Entry, error) {
	return w.svc.Reconcile(ctx, w.userID, local)
}
