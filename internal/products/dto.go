package products

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mksagencies/storefront-backend/pkg/db/models"
)

// ProductDTO is the storefront view of a product. ID is the external product id.
type ProductDTO struct {
	ID               string           `json:"id"`
	Slug             string           `json:"slug"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	ShortDescription string           `json:"shortDescription,omitempty"`
	Price            decimal.Decimal  `json:"price"`
	ComparePrice     *decimal.Decimal `json:"comparePrice,omitempty"`
	Category         string           `json:"category,omitempty"`
	Subcategory      string           `json:"subcategory,omitempty"`
	Images           []string         `json:"images"`
	Stock            int              `json:"stock"`
	IsActive         bool             `json:"isActive"`
	Tags             []string         `json:"tags"`
	Benefits         []string         `json:"benefits"`
	Ingredients      string           `json:"ingredients,omitempty"`
	Usage            string           `json:"usage,omitempty"`
	Weight           string           `json:"weight,omitempty"`
	MetaTitle        string           `json:"metaTitle,omitempty"`
	MetaDescription  string           `json:"metaDescription,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func FromModel(p models.Product) ProductDTO {
	return ProductDTO{
		ID:               p.ProductID,
		Slug:             p.Slug,
		Name:             p.Name,
		Description:      deref(p.Description),
		ShortDescription: deref(p.ShortDescription),
		Price:            p.Price,
		ComparePrice:     p.ComparePrice,
		Category:         deref(p.Category),
		Subcategory:      deref(p.Subcategory),
		Images:           nonNil(p.Images),
		Stock:            p.Stock,
		IsActive:         p.IsActive,
		Tags:             nonNil(p.Tags),
		Benefits:         nonNil(p.Benefits),
		Ingredients:      deref(p.Ingredients),
		Usage:            deref(p.Usage),
		Weight:           deref(p.Weight),
		MetaTitle:        deref(p.MetaTitle),
		MetaDescription:  deref(p.MetaDescription),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func FromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// ProductInput is the admin payload for create, update and seed. Nil fields
// are left untouched on update.
type ProductInput struct {
	ID               *string          `json:"id"`
	ProductID        *string          `json:"productId"`
	Slug             *string          `json:"slug"`
	Name             *string          `json:"name"`
	Description      *string          `json:"description"`
	ShortDescription *string          `json:"shortDescription"`
	Price            *decimal.Decimal `json:"price"`
	ComparePrice     *decimal.Decimal `json:"comparePrice"`
	Category         *string          `json:"category"`
	Subcategory      *string          `json:"subcategory"`
	Images           []string         `json:"images"`
	Stock            *int             `json:"stock"`
	IsActive         *bool            `json:"isActive"`
	Tags             []string         `json:"tags"`
	Benefits         []string         `json:"benefits"`
	Ingredients      *string          `json:"ingredients"`
	Usage            *string          `json:"usage"`
	Weight           *string          `json:"weight"`
	MetaTitle        *string          `json:"metaTitle"`
	MetaDescription  *string          `json:"metaDescription"`
}

// ExternalID prefers id over productId, matching what the admin UI sends.
func (in ProductInput) ExternalID() string {
	if v := trimmed(in.ID); v != "" {
		return v
	}
	return trimmed(in.ProductID)
}

// ManageRequest is the body of PUT /api/admin/products.
type ManageRequest struct {
	Action    string         `json:"action"`
	Product   *ProductInput  `json:"product"`
	ProductID string         `json:"productId"`
	Products  []ProductInput `json:"products"`
}

type ManageResult struct {
	Success bool        `json:"success"`
	Action  string      `json:"action"`
	Product *ProductDTO `json:"product,omitempty"`
	Created *int        `json:"created,omitempty"`
	Skipped *int        `json:"skipped,omitempty"`
	Total   *int        `json:"total,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
