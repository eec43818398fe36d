package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity blob carried by every bearer token. Only the
// registered expiry is enforced; the rest is whatever the issuer attached.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	// ConvexUserID mirrors UserID for older frontend builds that still read it.
	ConvexUserID string `json:"convexUserId,omitempty"`
	GuestID      string `json:"guestId,omitempty"`
	Email        string `json:"email,omitempty"`
	IsGuest      bool   `json:"isGuest,omitempty"`
	IsAdmin      bool   `json:"isAdmin,omitempty"`
	jwt.RegisteredClaims
}

// Subject returns the user record id behind the token, whichever claim carries it.
func (c *Claims) Subject() string {
	if c == nil {
		return ""
	}
	switch {
	case c.ConvexUserID != "":
		return c.ConvexUserID
	case c.UserID != "":
		return c.UserID
	default:
		return c.GuestID
	}
}
