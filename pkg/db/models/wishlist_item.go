package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem links a user to a saved product.
type WishlistItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:wishlist_items_user_product_key"`
	ProductID string          `gorm:"column:product_id;not null;uniqueIndex:wishlist_items_user_product_key"`
	Snapshot  ProductSnapshot `gorm:"embedded"`
	AddedAt   time.Time       `gorm:"column:added_at;autoCreateTime"`
}
