package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mksagencies/storefront-backend/pkg/db/models"
	"github.com/mksagencies/storefront-backend/pkg/enums"
)

// Repository defines persistence operations for the order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListForOwner(ctx context.Context, userID *uuid.UUID, email string) ([]models.Order, error)
	ListAll(ctx context.Context, status *enums.OrderStatus, limit int) ([]models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	StatusTotals(ctx context.Context) ([]StatusTotal, error)
}

// StatusTotal is the slice of an order the analytics rollup needs.
type StatusTotal struct {
	Status    enums.OrderStatus
	Total     decimal.Decimal
	CreatedAt time.Time
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
