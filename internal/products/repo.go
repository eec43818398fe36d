package products

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mksagencies/storefront-backend/pkg/db/models"
)

// Repository persists catalog products.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListParams filters catalog listings. A zero Limit means no limit.
type ListParams struct {
	Category        string
	IncludeInactive bool
	Limit           int
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *Repository) FindByProductID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveBySlug only matches products visible on the storefront.
func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if !params.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if c := strings.TrimSpace(params.Category); c != "" {
		q = q.Where("category = ?", c)
	}
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	var rows []models.Product
	if err := q.Order("created_at DESC").Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes the supplied columns onto the product identified by productID.
func (r *Repository) Update(ctx context.Context, productID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("product_id = ?", productID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, productID string) error {
	res := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExistingProductIDs returns the subset of ids already in the catalog.
func (r *Repository) ExistingProductIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("product_id IN ?", ids).Pluck("product_id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

// ReferencedImageURLs returns every image URL on every product, active or not.
func (r *Repository) ReferencedImageURLs(ctx context.Context) (map[string]struct{}, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).Select("images").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]struct{}{}
	for _, row := range rows {
		for _, url := range row.Images {
			if url = strings.TrimSpace(url); url != "" {
				out[url] = struct{}{}
			}
		}
	}
	return out, nil
}

// Transaction runs fn against a repository bound to a single transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(*Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
