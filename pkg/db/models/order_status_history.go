package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mksagencies/storefront-backend/pkg/enums"
)

// OrderStatusHistory is an append-only record of a status change.
type OrderStatusHistory struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus  `gorm:"column:status;type:text;not null"`
	Note      *string            `gorm:"column:note"`
	ChangedBy enums.HistoryActor `gorm:"column:changed_by;type:text;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
