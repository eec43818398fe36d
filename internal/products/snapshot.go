package products

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mksagencies/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
)

// SnapshotInput is the product data a client sends when it adds something to
// its cart or wishlist. The server stores it as-is; it is not re-read from
// the catalog.
type SnapshotInput struct {
	ID           string           `json:"id"`
	ProductID    string           `json:"productId"`
	Slug         string           `json:"slug"`
	Name         string           `json:"name"`
	Price        decimal.Decimal  `json:"price"`
	ComparePrice *decimal.Decimal `json:"comparePrice"`
	Images       []string         `json:"images"`
	Image        string           `json:"image"`
	Category     string           `json:"category"`
	Stock        *int             `json:"stock"`
}

// Key is the product id the snapshot is stored under.
func (in SnapshotInput) Key() string {
	if id := strings.TrimSpace(in.ID); id != "" {
		return id
	}
	return strings.TrimSpace(in.ProductID)
}

// Snapshot validates the input and returns the product id plus its row data.
func (in SnapshotInput) Snapshot() (string, models.ProductSnapshot, error) {
	id := in.Key()
	if id == "" {
		return "", models.ProductSnapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", models.ProductSnapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if in.Price.IsNegative() {
		return "", models.ProductSnapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "product price must be zero or more")
	}

	image := strings.TrimSpace(in.Image)
	if len(in.Images) > 0 && strings.TrimSpace(in.Images[0]) != "" {
		image = strings.TrimSpace(in.Images[0])
	}

	snap := models.ProductSnapshot{
		ProductSlug:  strings.TrimSpace(in.Slug),
		ProductName:  name,
		Price:        in.Price,
		ComparePrice: in.ComparePrice,
		Stock:        in.Stock,
	}
	if image != "" {
		snap.Image = &image
	}
	if c := strings.TrimSpace(in.Category); c != "" {
		snap.Category = &c
	}
	return id, snap, nil
}

// SnapshotView is the stored snapshot as clients read it back.
type SnapshotView struct {
	ID           string           `json:"id"`
	Slug         string           `json:"slug"`
	Name         string           `json:"name"`
	Price        decimal.Decimal  `json:"price"`
	ComparePrice *decimal.Decimal `json:"comparePrice,omitempty"`
	Image        string           `json:"image,omitempty"`
	Images       []string         `json:"images,omitempty"`
	Category     string           `json:"category,omitempty"`
	Stock        *int             `json:"stock,omitempty"`
}

func ViewSnapshot(productID string, s models.ProductSnapshot) SnapshotView {
	view := SnapshotView{
		ID:           productID,
		Slug:         s.ProductSlug,
		Name:         s.ProductName,
		Price:        s.Price,
		ComparePrice: s.ComparePrice,
		Image:        deref(s.Image),
		Category:     deref(s.Category),
		Stock:        s.Stock,
	}
	if view.Image != "" {
		view.Images = []string{view.Image}
	}
	return view
}
