package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mksagencies/storefront-backend/pkg/db/models"
	"github.com/mksagencies/storefront-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Items", "History").Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) detail() *gorm.DB {
	return r.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

// FindByID loads the order with its items and history.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.detail().WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByNumber returns the newest order carrying the number. Numbers are not
// guaranteed unique.
func (r *repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.detail().WithContext(ctx).
		Where("order_number = ?", orderNumber).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListForOwner returns orders placed under the user id or, as a guest, the
// email address. Newest first, with items.
func (r *repository) ListForOwner(ctx context.Context, userID *uuid.UUID, email string) ([]models.Order, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if userID == nil && email == "" {
		return []models.Order{}, nil
	}

	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
	switch {
	case userID != nil && email != "":
		query = query.Where("user_id = ? OR LOWER(guest_email) = ?", *userID, email)
	case userID != nil:
		query = query.Where("user_id = ?", *userID)
	default:
		query = query.Where("LOWER(guest_email) = ?", email)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListAll(ctx context.Context, status *enums.OrderStatus, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var rows []models.Order
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) StatusTotals(ctx context.Context) ([]StatusTotal, error) {
	var rows []StatusTotal
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, total, created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
