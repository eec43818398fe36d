package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mksagencies/storefront-backend/pkg/enums"
)

// Order is a placed purchase. Totals are stored as submitted by the client.
type Order struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        string            `gorm:"column:order_number;not null;index"`
	UserID             *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	GuestEmail         *string           `gorm:"column:guest_email;index"`
	Status             enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Subtotal           decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingFee        decimal.Decimal   `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	Discount           *decimal.Decimal  `gorm:"column:discount;type:numeric(12,2)"`
	Total              decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	ShippingName       string            `gorm:"column:shipping_name;not null"`
	ShippingEmail      string            `gorm:"column:shipping_email;not null"`
	ShippingPhone      string            `gorm:"column:shipping_phone;not null"`
	ShippingAddress    string            `gorm:"column:shipping_address;not null"`
	ShippingCity       string            `gorm:"column:shipping_city;not null;default:''"`
	ShippingState      string            `gorm:"column:shipping_state;not null;default:''"`
	ShippingPostal     string            `gorm:"column:shipping_postal;not null;default:''"`
	ShippingCountry    string            `gorm:"column:shipping_country;not null"`
	TrackingURL        *string           `gorm:"column:tracking_url"`
	TrackingNumber     *string           `gorm:"column:tracking_number"`
	CourierName        *string           `gorm:"column:courier_name"`
	FailureReason      *string           `gorm:"column:failure_reason"`
	CancellationReason *string           `gorm:"column:cancellation_reason"`
	AdminNotes         *string           `gorm:"column:admin_notes"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	ShippedAt          *time.Time        `gorm:"column:shipped_at"`
	DeliveredAt        *time.Time        `gorm:"column:delivered_at"`

	Items   []OrderItem          `gorm:"foreignKey:OrderID"`
	History []OrderStatusHistory `gorm:"foreignKey:OrderID"`
}
