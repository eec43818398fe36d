package users

import (
	"github.com/mksagencies/storefront-backend/pkg/db/models"
	"github.com/mksagencies/storefront-backend/pkg/enums"
)

// UserDTO is the public view of a user returned by the auth routes.
type UserDTO struct {
	ID            string             `json:"id"`
	Email         string             `json:"email"`
	Name          string             `json:"name,omitempty"`
	Phone         string             `json:"phone,omitempty"`
	AvatarURL     string             `json:"avatarUrl,omitempty"`
	Provider      enums.AuthProvider `json:"provider,omitempty"`
	EmailVerified bool               `json:"emailVerified"`
	IsGuest       bool               `json:"isGuest,omitempty"`
	IsVerified    *bool              `json:"isVerified,omitempty"`
}

// FromModel maps a persisted user to its public representation.
func FromModel(u *models.User) UserDTO {
	if u == nil {
		return UserDTO{}
	}
	return UserDTO{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          deref(u.Name),
		Phone:         deref(u.Phone),
		AvatarURL:     deref(u.AvatarURL),
		Provider:      u.Provider,
		EmailVerified: u.EmailVerified,
		IsGuest:       u.IsGuest,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
