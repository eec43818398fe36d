package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mksagencies/storefront-backend/pkg/enums"
)

// User is a storefront identity: a Google account, a magic-link account or a
// guest who checked out with just an email.
type User struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email               string             `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name                *string            `gorm:"column:name"`
	Phone               *string            `gorm:"column:phone"`
	AvatarURL           *string            `gorm:"column:avatar_url"`
	Provider            enums.AuthProvider `gorm:"column:provider;type:text;not null"`
	ProviderID          *string            `gorm:"column:provider_id"`
	EmailVerified       bool               `gorm:"column:email_verified;not null"`
	IsGuest             bool               `gorm:"column:is_guest;not null"`
	IsAdmin             bool               `gorm:"column:is_admin;not null"`
	VerificationToken   *string            `gorm:"column:verification_token"`
	VerificationExpires *time.Time         `gorm:"column:verification_expires"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
