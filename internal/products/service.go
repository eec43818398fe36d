package products

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mksagencies/storefront-backend/pkg/db"
	"github.com/mksagencies/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionSeed   = "seed"

	DefaultListLimit = 100
	MaxListLimit     = 200

	productIDIndex  = "idx_products_product_id"
	activeSlugIndex = "idx_products_active_slug"
)

// Service exposes the public catalog and the admin product operations.
type Service interface {
	List(ctx context.Context, input ListInput) ([]ProductDTO, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	AdminList(ctx context.Context) ([]ProductDTO, error)
	Manage(ctx context.Context, req ManageRequest) (*ManageResult, error)
}

type ListInput struct {
	Category string
	Limit    int
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository is required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]ProductDTO, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := s.repo.List(ctx, ListParams{Category: input.Category, Limit: limit})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return FromModels(rows), nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	row, err := s.repo.FindActiveBySlug(ctx, slug)
	if err != nil {
		return nil, wrapLookup(err, "Product not found")
	}
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) AdminList(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.List(ctx, ListParams{IncludeInactive: true})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return FromModels(rows), nil
}

func (s *service) Manage(ctx context.Context, req ManageRequest) (*ManageResult, error) {
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case ActionCreate:
		if req.Product != nil {
			return s.create(ctx, *req.Product)
		}
	case ActionUpdate:
		if id := targetID(req); id != "" && req.Product != nil {
			return s.update(ctx, id, *req.Product)
		}
	case ActionDelete:
		if id := targetID(req); id != "" {
			return s.delete(ctx, id)
		}
	case "", ActionSeed:
		if req.Products != nil {
			return s.seed(ctx, req.Products)
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid request. Expected action: create, update, or delete")
}

func targetID(req ManageRequest) string {
	if req.Product != nil {
		if id := req.Product.ExternalID(); id != "" {
			return id
		}
	}
	return strings.TrimSpace(req.ProductID)
}

func (s *service) create(ctx context.Context, input ProductInput) (*ManageResult, error) {
	product, err := s.newProduct(input, "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, wrapWrite(err, "create product")
	}
	dto := FromModel(*product)
	return &ManageResult{Success: true, Action: "created", Product: &dto}, nil
}

func (s *service) update(ctx context.Context, productID string, input ProductInput) (*ManageResult, error) {
	fields, err := updateFields(input)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		if _, err := s.repo.FindByProductID(ctx, productID); err != nil {
			return nil, wrapLookup(err, "Product not found")
		}
	} else if err := s.repo.Update(ctx, productID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return nil, wrapWrite(err, "update product")
	}

	row, err := s.repo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, wrapLookup(err, "Product not found")
	}
	dto := FromModel(*row)
	return &ManageResult{Success: true, Action: "updated", Product: &dto}, nil
}

func (s *service) delete(ctx context.Context, productID string) (*ManageResult, error) {
	if err := s.repo.Delete(ctx, productID); err != nil {
		return nil, wrapLookup(err, "Product not found")
	}
	return &ManageResult{Success: true, Action: "deleted"}, nil
}

// seed inserts rows whose product id is new and skips the rest, so replaying
// the same catalog file is harmless.
func (s *service) seed(ctx context.Context, inputs []ProductInput) (*ManageResult, error) {
	rows := make([]*models.Product, 0, len(inputs))
	for i, input := range inputs {
		product, err := s.newProduct(input, fmt.Sprintf("_%d", i))
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				return nil, pkgerrors.New(typed.Code(), fmt.Sprintf("products[%d]: %s", i, typed.Message()))
			}
			return nil, err
		}
		rows = append(rows, product)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}

	created, skipped := 0, 0
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		existing, err := tx.ExistingProductIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if _, ok := existing[row.ProductID]; ok {
				skipped++
				continue
			}
			if err := tx.Create(ctx, row); err != nil {
				return err
			}
			existing[row.ProductID] = struct{}{}
			created++
		}
		return nil
	})
	if err != nil {
		return nil, wrapWrite(err, "seed products")
	}

	total := len(rows)
	return &ManageResult{Success: true, Action: "seeded", Created: &created, Skipped: &skipped, Total: &total}, nil
}

func (s *service) newProduct(input ProductInput, idSuffix string) (*models.Product, error) {
	name := trimmed(input.Name)
	slug := trimmed(input.Slug)
	if name == "" || slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and slug are required")
	}
	if input.Price == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or more")
	}
	stock := 0
	if input.Stock != nil {
		stock = *input.Stock
	}
	if stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be zero or more")
	}

	productID := input.ExternalID()
	if productID == "" {
		productID = fmt.Sprintf("prod_%d%s", s.now().UnixMilli(), idSuffix)
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	var compare *decimal.Decimal
	if input.ComparePrice != nil && input.ComparePrice.IsPositive() {
		cp := input.ComparePrice.Round(2)
		compare = &cp
	}

	return &models.Product{
		ProductID:        productID,
		Slug:             slug,
		Name:             name,
		Description:      nonEmpty(input.Description),
		ShortDescription: nonEmpty(input.ShortDescription),
		Price:            input.Price.Round(2),
		ComparePrice:     compare,
		Category:         nonEmpty(input.Category),
		Subcategory:      nonEmpty(input.Subcategory),
		Images:           pq.StringArray(cleanList(input.Images)),
		Stock:            stock,
		IsActive:         active,
		Tags:             pq.StringArray(cleanList(input.Tags)),
		Benefits:         pq.StringArray(cleanList(input.Benefits)),
		Ingredients:      nonEmpty(input.Ingredients),
		Usage:            nonEmpty(input.Usage),
		Weight:           nonEmpty(input.Weight),
		MetaTitle:        nonEmpty(input.MetaTitle),
		MetaDescription:  nonEmpty(input.MetaDescription),
	}, nil
}

func updateFields(input ProductInput) (map[string]any, error) {
	fields := map[string]any{}
	if input.Name != nil {
		if trimmed(input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = trimmed(input.Name)
	}
	if input.Slug != nil {
		if trimmed(input.Slug) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug cannot be empty")
		}
		fields["slug"] = trimmed(input.Slug)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or more")
		}
		fields["price"] = input.Price.Round(2)
	}
	if input.ComparePrice != nil {
		if input.ComparePrice.IsPositive() {
			fields["compare_price"] = input.ComparePrice.Round(2)
		} else {
			fields["compare_price"] = nil
		}
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be zero or more")
		}
		fields["stock"] = *input.Stock
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}
	if input.Images != nil {
		fields["images"] = pq.StringArray(cleanList(input.Images))
	}
	if input.Tags != nil {
		fields["tags"] = pq.StringArray(cleanList(input.Tags))
	}
	if input.Benefits != nil {
		fields["benefits"] = pq.StringArray(cleanList(input.Benefits))
	}
	optionalText := map[string]*string{
		"description":       input.Description,
		"short_description": input.ShortDescription,
		"category":          input.Category,
		"subcategory":       input.Subcategory,
		"ingredients":       input.Ingredients,
		"usage":             input.Usage,
		"weight":            input.Weight,
		"meta_title":        input.MetaTitle,
		"meta_description":  input.MetaDescription,
	}
	for column, value := range optionalText {
		if value != nil {
			fields[column] = nonEmpty(value)
		}
	}
	return fields, nil
}

func wrapLookup(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func wrapWrite(err error, msg string) error {
	switch {
	case db.IsUniqueViolation(err, productIDIndex):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a product with this id already exists")
	case db.IsUniqueViolation(err, activeSlugIndex):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an active product with this slug already exists")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a product with this id or slug already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func nonEmpty(s *string) *string {
	v := trimmed(s)
	if v == "" {
		return nil
	}
	return &v
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
