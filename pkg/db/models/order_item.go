package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is a frozen snapshot of one cart line at checkout.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    string          `gorm:"column:product_id;not null"`
	ProductName  string          `gorm:"column:product_name;not null"`
	ProductSlug  string          `gorm:"column:product_slug;not null"`
	ProductImage *string         `gorm:"column:product_image"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
