package wishlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mksagencies/storefront-backend/internal/products"
	"github.com/mksagencies/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
)

// Entry is a saved product as the storefront renders it.
type Entry struct {
	ID           string           `json:"id"`
	Slug         string           `json:"slug"`
	Name         string           `json:"name"`
	Price        decimal.Decimal  `json:"price"`
	ComparePrice *decimal.Decimal `json:"comparePrice,omitempty"`
	Images       []string         `json:"images"`
	Category     string           `json:"category,omitempty"`
	Stock        *int             `json:"stock,omitempty"`
	AddedAt      time.Time        `json:"addedAt"`
}

type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]Entry, error)
	AddItem(ctx context.Context, userID uuid.UUID, product products.SnapshotInput) error
	RemoveItem(ctx context.Context, userID uuid.UUID, productID string) error
	Clear(ctx context.Context, userID uuid.UUID) error
	Reconcile(ctx context.Context, userID uuid.UUID, local []products.SnapshotInput) ([]Entry, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, toEntry(row))
	}
	return out, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, product products.SnapshotInput) error {
	item, err := newItem(userID, product)
	if err != nil {
		return err
	}
	if err := s.repo.Add(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear wishlist")
	}
	return nil
}

// Reconcile is a union: every local product is added, existing saves are left alone.
func (s *service) Reconcile(ctx context.Context, userID uuid.UUID, local []products.SnapshotInput) ([]Entry, error) {
	items := make([]*models.WishlistItem, 0, len(local))
	for i, in := range local {
		item, err := newItem(userID, in)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: %s", i, pkgerrors.As(err).Message()))
		}
		items = append(items, item)
	}

	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		for _, item := range items {
			if err := tx.Add(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync wishlist")
	}
	return s.List(ctx, userID)
}

func newItem(userID uuid.UUID, product products.SnapshotInput) (*models.WishlistItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	productID, snap, err := product.Snapshot()
	if err != nil {
		return nil, err
	}
	return &models.WishlistItem{UserID: userID, ProductID: productID, Snapshot: snap}, nil
}

func toEntry(row models.WishlistItem) Entry {
	view := products.ViewSnapshot(row.ProductID, row.Snapshot)
	images := view.Images
	if images == nil {
		images = []string{}
	}
	return Entry{
		ID:           view.ID,
		Slug:         view.Slug,
		Name:         view.Name,
		Price:        view.Price,
		ComparePrice: view.ComparePrice,
		Images:       images,
		Category:     view.Category,
		Stock:        view.Stock,
		AddedAt:      row.AddedAt,
	}
}
