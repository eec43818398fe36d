package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the denormalized product display data copied onto cart
// and wishlist rows when an item is added.
type ProductSnapshot struct {
	ProductSlug  string           `gorm:"column:product_slug;not null;default:''"`
	ProductName  string           `gorm:"column:product_name;not null"`
	Price        decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	ComparePrice *decimal.Decimal `gorm:"column:compare_price;type:numeric(12,2)"`
	Image        *string          `gorm:"column:image"`
	Category     *string          `gorm:"column:category"`
	Stock        *int             `gorm:"column:stock"`
}

// CartItem is one (user, product) line in a server-side cart.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:cart_items_user_product_key"`
	ProductID string          `gorm:"column:product_id;not null;uniqueIndex:cart_items_user_product_key"`
	Snapshot  ProductSnapshot `gorm:"embedded"`
	Quantity  int             `gorm:"column:quantity;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
