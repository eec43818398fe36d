package auth

import "github.com/mksagencies/storefront-backend/internal/users"

// GuestInput is the contact information a guest checks out with.
type GuestInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// SessionResponse is returned by the Google and magic-link logins.
type SessionResponse struct {
	User  users.UserDTO `json:"user"`
	Token string        `json:"token"`
}

type GuestSessionResponse struct {
	User                 users.UserDTO `json:"user"`
	Token                string        `json:"token"`
	VerificationRequired bool          `json:"verificationRequired"`
	VerificationMethod   string        `json:"verificationMethod"`
}

type VerifyGuestResponse struct {
	Verified bool   `json:"verified"`
	UserID   string `json:"userId"`
}

type LoginLinkResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	IsNewUser bool   `json:"isNewUser"`
}

type AdminLoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}
