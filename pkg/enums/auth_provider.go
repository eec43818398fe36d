package enums

import "fmt"

// AuthProvider records how a user first proved who they are.
type AuthProvider string

const (
	AuthProviderGoogle AuthProvider = "google"
	AuthProviderEmail  AuthProvider = "email"
	AuthProviderGuest  AuthProvider = "guest"
)

var validAuthProviders = []AuthProvider{
	AuthProviderGoogle,
	AuthProviderEmail,
	AuthProviderGuest,
}

// String implements fmt.Stringer.
func (p AuthProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known AuthProvider.
func (p AuthProvider) IsValid() bool {
	for _, candidate := range validAuthProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseAuthProvider converts raw input into an AuthProvider.
func ParseAuthProvider(value string) (AuthProvider, error) {
	for _, candidate := range validAuthProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid auth provider %q", value)
}
