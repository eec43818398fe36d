package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mksagencies/storefront-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Transaction(ctx context.Context, fn func(*Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// List returns the newest additions first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	var rows []models.WishlistItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at DESC").
		Order("product_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Add keeps the first snapshot when the product is already saved.
func (r *Repository) Add(ctx context.Context, item *models.WishlistItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(item).Error
}

func (r *Repository) Remove(ctx context.Context, userID uuid.UUID, productID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{}).Error
}

func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.WishlistItem{}).Error
}
