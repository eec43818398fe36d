package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mksagencies/storefront-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = NormalizeEmail(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail retrieves the registered (non-guest) account for email. Guest
// rows are never returned; several guests may share one address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND is_guest = ?", NormalizeEmail(email), false).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByVerificationToken loads the user holding an outstanding one-time token.
func (r *Repository) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("verification_token = ?", token).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update writes the supplied columns onto the user row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetVerificationToken stores a one-time token valid until expires.
func (r *Repository) SetVerificationToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	return r.Update(ctx, id, map[string]any{
		"verification_token":   token,
		"verification_expires": expires,
	})
}

// ConsumeVerificationToken clears the token and marks the email verified.
func (r *Repository) ConsumeVerificationToken(ctx context.Context, id uuid.UUID) error {
	return r.Update(ctx, id, map[string]any{
		"email_verified":       true,
		"verification_token":   nil,
		"verification_expires": nil,
	})
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
