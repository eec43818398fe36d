package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. ProductID is the stable external id the
// storefront and carts refer to; ID is internal.
type Product struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        string           `gorm:"column:product_id;not null;uniqueIndex"`
	Slug             string           `gorm:"column:slug;not null"`
	Name             string           `gorm:"column:name;not null"`
	Description      *string          `gorm:"column:description"`
	ShortDescription *string          `gorm:"column:short_description"`
	Price            decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	ComparePrice     *decimal.Decimal `gorm:"column:compare_price;type:numeric(12,2)"`
	Category         *string          `gorm:"column:category"`
	Subcategory      *string          `gorm:"column:subcategory"`
	Images           pq.StringArray   `gorm:"column:images;type:text[];not null;default:'{}'"`
	Stock            int              `gorm:"column:stock;not null;default:0"`
	IsActive         bool             `gorm:"column:is_active;not null"`
	Tags             pq.StringArray   `gorm:"column:tags;type:text[];not null;default:'{}'"`
	Benefits         pq.StringArray   `gorm:"column:benefits;type:text[];not null;default:'{}'"`
	Ingredients      *string          `gorm:"column:ingredients"`
	Usage            *string          `gorm:"column:usage"`
	Weight           *string          `gorm:"column:weight"`
	MetaTitle        *string          `gorm:"column:meta_title"`
	MetaDescription  *string          `gorm:"column:meta_description"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
