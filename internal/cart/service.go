package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mksagencies/storefront-backend/internal/products"
	"github.com/mksagencies/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
)

// DefaultMaxQuantity caps a line whose snapshot carries no stock figure.
const DefaultMaxQuantity = 99

// Line is one cart entry as returned to clients.
type Line struct {
	Product  products.SnapshotView `json:"product"`
	Quantity int                   `json:"quantity"`
}

// SyncItem is a locally held cart line pushed up for reconciliation.
type SyncItem struct {
	products.SnapshotInput
	Quantity int `json:"quantity"`
}

// Service is the server half of the cart: clients commit locally first and
// mirror each change here.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]Line, error)
	AddItem(ctx context.Context, userID uuid.UUID, product products.SnapshotInput, quantity int) error
	UpdateQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID uuid.UUID, productID string) error
	Clear(ctx context.Context, userID uuid.UUID) error
	Reconcile(ctx context.Context, userID uuid.UUID, local []SyncItem) ([]Line, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	return toLines(rows), nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, product products.SnapshotInput, quantity int) error {
	item, err := newItem(userID, product, quantity)
	if err != nil {
		return err
	}
	if err := s.repo.Accumulate(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}

	item, err := s.repo.Find(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if quantity <= 0 {
		if err := s.repo.Remove(ctx, userID, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		return nil
	}

	if err := s.repo.SetQuantity(ctx, userID, productID, clampQuantity(quantity, item.Snapshot.Stock)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Reconcile merges a local cart into the server cart. Products the server
// already holds keep the server quantity; the rest are inserted as sent.
func (s *service) Reconcile(ctx context.Context, userID uuid.UUID, local []SyncItem) ([]Line, error) {
	items := make([]*models.CartItem, 0, len(local))
	for i, l := range local {
		item, err := newItem(userID, l.SnapshotInput, l.Quantity)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: %s", i, pkgerrors.As(err).Message()))
		}
		items = append(items, item)
	}

	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		for _, item := range items {
			if err := tx.InsertMissing(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync cart")
	}
	return s.List(ctx, userID)
}

func newItem(userID uuid.UUID, product products.SnapshotInput, quantity int) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	productID, snap, err := product.Snapshot()
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		quantity = 1
	}
	return &models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Snapshot:  snap,
		Quantity:  quantity,
	}, nil
}

func clampQuantity(quantity int, stock *int) int {
	upper := DefaultMaxQuantity
	if stock != nil {
		upper = *stock
	}
	if quantity > upper {
		quantity = upper
	}
	if quantity < 1 {
		quantity = 1
	}
	return quantity
}

func toLines(rows []models.CartItem) []Line {
	out := make([]Line, 0, len(rows))
	for _, row := range rows {
		out = append(out, Line{
			Product:  products.ViewSnapshot(row.ProductID, row.Snapshot),
			Quantity: row.Quantity,
		})
	}
	return out
}
