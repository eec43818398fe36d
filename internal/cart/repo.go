package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mksagencies/storefront-backend/pkg/db/models"
)

var snapshotColumns = []string{
	"product_slug",
	"product_name",
	"price",
	"compare_price",
	"image",
	"category",
	"stock",
}

// Repository manages server-side cart rows.
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

// Transaction runs fn against a repository bound to one transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(*Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("product_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Find(ctx context.Context, userID uuid.UUID, productID string) (*models.CartItem, error) {
	var row models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Accumulate inserts the line or, when the product is already in the cart,
// adds the quantity and refreshes the snapshot in one statement.
func (r *Repository) Accumulate(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	updates := clause.AssignmentColumns(append([]string{"updated_at"}, snapshotColumns...))
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "quantity"},
		Value:  gorm.Expr("cart_items.quantity + excluded.quantity"),
	})
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: updates,
		}).
		Create(item).Error
}

// InsertMissing inserts the line only when the user has no row for the product.
func (r *Repository) InsertMissing(ctx context.Context, item *models.CartItem) error {
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

func (r *Repository) SetQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Updates(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Remove is a no-op when the line does not exist.
func (r *Repository) Remove(ctx context.Context, userID uuid.UUID, productID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}

func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}
