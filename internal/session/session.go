// Package session binds an authenticated caller to the stores it may touch
// for the lifetime of one request.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mksagencies/storefront-backend/internal/cart"
	"github.com/mksagencies/storefront-backend/internal/wishlist"
	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
)

// Session is the caller's identity plus its cart and wishlist, scoped to
// that identity. Every call goes through the owning user id, so a handler
// holding a Session cannot reach another user's rows.
type Session struct {
	Claims *pkgauth.Claims
	UserID uuid.UUID

	cart     cart.Service
	wishlist wishlist.Service
}

func (s *Session) Cart() *CartView {
	return &CartView{userID: s.UserID, svc: s.cart}
}

func (s *Session) Wishlist() *WishlistView {
	return &WishlistView{userID: s.UserID, svc: s.wishlist}
}

// Factory builds sessions; one is shared by the router, sessions are not.
type Factory struct {
	cart     cart.Service
	wishlist wishlist.Service
}

func NewFactory(cartSvc cart.Service, wishlistSvc wishlist.Service) (*Factory, error) {
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if wishlistSvc == nil {
		return nil, fmt.Errorf("wishlist service required")
	}
	return &Factory{cart: cartSvc, wishlist: wishlistSvc}, nil
}

// Open returns a session for the claims. Tokens without a user subject (the
// admin token, for one) cannot own a cart.
func (f *Factory) Open(claims *pkgauth.Claims) (*Session, error) {
	subject := claims.Subject()
	if subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	return &Session{
		Claims:   claims,
		UserID:   userID,
		cart:     f.cart,
		wishlist: f.wishlist,
	}, nil
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
