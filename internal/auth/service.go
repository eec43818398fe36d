package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mksagencies/storefront-backend/internal/notifications"
	"github.com/mksagencies/storefront-backend/internal/ratelimit"
	"github.com/mksagencies/storefront-backend/internal/users"
	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/db"
	"github.com/mksagencies/storefront-backend/pkg/db/models"
	"github.com/mksagencies/storefront-backend/pkg/enums"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
	"github.com/mksagencies/storefront-backend/pkg/google"
	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/security"
)

// OneTimeTokenTTL is how long guest verification and login links stay valid.
const OneTimeTokenTTL = 24 * time.Hour

const verificationMethodEmail = "email"

// usersEmailIndex is the unique index over registered (non-guest) emails.
const usersEmailIndex = "idx_users_email"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service implements every identity flow behind /api/auth and /api/admin/login.
type Service interface {
	GoogleLogin(ctx context.Context, credential string) (*SessionResponse, error)
	GuestSession(ctx context.Context, input GuestInput) (*GuestSessionResponse, error)
	VerifyGuest(ctx context.Context, token string) (*VerifyGuestResponse, error)
	SendLoginLink(ctx context.Context, clientIP, email string) (*LoginLinkResponse, error)
	VerifyLoginLink(ctx context.Context, token string) (*SessionResponse, error)
	AdminLogin(ctx context.Context, clientIP, passcode string) (*AdminLoginResponse, error)
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	SetVerificationToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error
	ConsumeVerificationToken(ctx context.Context, id uuid.UUID) error
}

type rateLimiter interface {
	Check(ctx context.Context, identity, action string) ratelimit.Result
	Increment(ctx context.Context, identity, action string)
	Reset(ctx context.Context, identity, action string)
}

type ServiceParams struct {
	Users       userRepository
	Limiter     rateLimiter
	Dispatcher  notifications.Dispatcher
	Google      google.Verifier
	JWT         config.JWTConfig
	Admin       config.AdminConfig
	FrontendURL string
	Logger      *logger.Logger
	Now         func() time.Time
	// NewToken overrides one-time token generation in tests.
	NewToken func() (string, error)
}

type service struct {
	users       userRepository
	limiter     rateLimiter
	dispatcher  notifications.Dispatcher
	google      google.Verifier
	jwt         config.JWTConfig
	admin       config.AdminConfig
	frontendURL string
	logg        *logger.Logger
	now         func() time.Time
	newToken    func() (string, error)
}

func NewService(p ServiceParams) (Service, error) {
	if p.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if p.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if p.Dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher is required")
	}
	if p.Google == nil {
		return nil, fmt.Errorf("google verifier is required")
	}
	if strings.TrimSpace(p.JWT.Secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.NewToken == nil {
		p.NewToken = func() (string, error) { return pkgauth.GenerateToken(pkgauth.OneTimeTokenLength) }
	}
	return &service{
		users:       p.Users,
		limiter:     p.Limiter,
		dispatcher:  p.Dispatcher,
		google:      p.Google,
		jwt:         p.JWT,
		admin:       p.Admin,
		frontendURL: strings.TrimRight(p.FrontendURL, "/"),
		logg:        p.Logger,
		now:         p.Now,
		newToken:    p.NewToken,
	}, nil
}

func (s *service) GoogleLogin(ctx context.Context, credential string) (*SessionResponse, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Credential required")
	}

	profile, err := s.google.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, google.ErrInvalidCredential) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid credential")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify google credential")
	}

	user, err := s.upsertGoogleUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	token, err := s.issue(pkgauth.GoogleSessionTTL, sessionClaims(user))
	if err != nil {
		return nil, err
	}

	dto := users.FromModel(user)
	dto.Phone = ""
	dto.Provider = enums.AuthProviderGoogle
	return &SessionResponse{User: dto, Token: token}, nil
}

// upsertGoogleUser only overwrites profile fields Google actually returned and
// never downgrades a verified email.
func (s *service) upsertGoogleUser(ctx context.Context, profile google.Profile) (*models.User, error) {
	existing, err := s.users.FindByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		fields := map[string]any{}
		if profile.Name != "" {
			fields["name"] = profile.Name
			existing.Name = &profile.Name
		}
		if profile.Picture != "" {
			fields["avatar_url"] = profile.Picture
			existing.AvatarURL = &profile.Picture
		}
		if profile.EmailVerified && !existing.EmailVerified {
			fields["email_verified"] = true
			existing.EmailVerified = true
		}
		if err := s.users.Update(ctx, existing.ID, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	user := &models.User{
		Email:         profile.Email,
		Name:          optional(profile.Name),
		AvatarURL:     optional(profile.Picture),
		Provider:      enums.AuthProviderGoogle,
		ProviderID:    optional(profile.Subject),
		EmailVerified: profile.EmailVerified,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, wrapCreate(err)
	}
	return user, nil
}

func (s *service) GuestSession(ctx context.Context, input GuestInput) (*GuestSessionResponse, error) {
	name := strings.TrimSpace(input.Name)
	email := users.NormalizeEmail(input.Email)
	phone := strings.TrimSpace(input.Phone)
	if name == "" || email == "" || phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name, email, and phone are required")
	}

	verificationToken, err := s.newToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification token")
	}
	expires := s.now().UTC().Add(OneTimeTokenTTL)

	user, err := s.createGuest(ctx, name, email, phone, verificationToken, expires)
	if err != nil {
		return nil, err
	}

	claims := pkgauth.Claims{
		GuestID:      user.ID.String(),
		ConvexUserID: user.ID.String(),
		Email:        user.Email,
		IsGuest:      true,
	}
	token, err := s.issue(pkgauth.GuestSessionTTL, claims)
	if err != nil {
		return nil, err
	}

	err = s.dispatcher.Dispatch(ctx, notifications.New(enums.NotificationTypeGuestVerification, notifications.GuestVerification{
		To:               user.Email,
		Name:             name,
		VerificationLink: s.link("verify", verificationToken),
	}))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "send guest verification").
			WithPublicMessage("Failed to send verification email")
	}

	verified := false
	return &GuestSessionResponse{
		User: users.UserDTO{
			ID:         user.ID.String(),
			Name:       name,
			Email:      user.Email,
			Phone:      phone,
			IsGuest:    true,
			IsVerified: &verified,
		},
		Token:                token,
		VerificationRequired: true,
		VerificationMethod:   verificationMethodEmail,
	}, nil
}

// createGuest always inserts a fresh guest row; a guest session never
// resolves to an existing account, guest or registered.
func (s *service) createGuest(ctx context.Context, name, email, phone, token string, expires time.Time) (*models.User, error) {
	user := &models.User{
		Email:               email,
		Name:                &name,
		Phone:               &phone,
		Provider:            enums.AuthProviderGuest,
		IsGuest:             true,
		VerificationToken:   &token,
		VerificationExpires: &expires,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create guest")
	}
	return user, nil
}

func (s *service) VerifyGuest(ctx context.Context, token string) (*VerifyGuestResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Verification token required")
	}

	user, err := s.consumeToken(ctx, token, "Invalid token", "Token expired")
	if err != nil {
		return nil, err
	}
	return &VerifyGuestResponse{Verified: true, UserID: user.ID.String()}, nil
}

func (s *service) SendLoginLink(ctx context.Context, clientIP, email string) (*LoginLinkResponse, error) {
	result := s.limiter.Check(ctx, clientIP, ratelimit.ActionEmailLogin)
	if !result.Allowed {
		return nil, tooManyAttempts(result)
	}
	s.limiter.Increment(ctx, clientIP, ratelimit.ActionEmailLogin)

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Email is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please enter a valid email address")
	}
	email = users.NormalizeEmail(email)

	loginToken, err := s.newToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate login token")
	}
	expires := s.now().UTC().Add(OneTimeTokenTTL)

	isNew, err := s.storeLoginToken(ctx, email, loginToken, expires)
	if err != nil {
		return nil, err
	}

	err = s.dispatcher.Dispatch(ctx, notifications.New(enums.NotificationTypeEmailLogin, notifications.EmailLogin{
		To:        email,
		LoginLink: s.link("login", loginToken),
	}))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "send login email").
			WithPublicMessage("Failed to send login email")
	}

	return &LoginLinkResponse{
		Success:   true,
		Message:   "Login link sent to your email",
		IsNewUser: isNew,
	}, nil
}

func (s *service) storeLoginToken(ctx context.Context, email, token string, expires time.Time) (bool, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.SetVerificationToken(ctx, existing.ID, token, expires); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store login token")
		}
		return false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	user := &models.User{
		Email:               email,
		Provider:            enums.AuthProviderEmail,
		VerificationToken:   &token,
		VerificationExpires: &expires,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return false, wrapCreate(err)
	}
	return true, nil
}

func (s *service) VerifyLoginLink(ctx context.Context, token string) (*SessionResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Login token required")
	}

	user, err := s.consumeToken(ctx, token, "Invalid or expired login link", "Login link has expired")
	if err != nil {
		return nil, err
	}

	jwtToken, err := s.issue(pkgauth.EmailSessionTTL, sessionClaims(user))
	if err != nil {
		return nil, err
	}

	dto := users.FromModel(user)
	dto.AvatarURL = ""
	dto.IsGuest = false
	dto.EmailVerified = true
	return &SessionResponse{User: dto, Token: jwtToken}, nil
}

// consumeToken redeems a one-time token. Expired tokens stay on the row so a
// second attempt reports the same expiry rather than an unknown token.
func (s *service) consumeToken(ctx context.Context, token, invalidMsg, expiredMsg string) (*models.User, error) {
	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, invalidMsg)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load token owner")
	}
	if user.VerificationExpires != nil && s.now().After(*user.VerificationExpires) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, expiredMsg)
	}
	if err := s.users.ConsumeVerificationToken(ctx, user.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume token")
	}
	user.EmailVerified = true
	user.VerificationToken = nil
	user.VerificationExpires = nil
	return user, nil
}

func (s *service) AdminLogin(ctx context.Context, clientIP, passcode string) (*AdminLoginResponse, error) {
	result := s.limiter.Check(ctx, clientIP, ratelimit.ActionAdminLogin)
	if !result.Allowed {
		return nil, tooManyAttempts(result)
	}

	if passcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Passcode required")
	}

	ok, err := s.passcodeMatches(passcode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check admin passcode")
	}
	if !ok {
		s.limiter.Increment(ctx, clientIP, ratelimit.ActionAdminLogin)
		s.logg.Warn(s.logg.WithClientIP(ctx, clientIP), "admin.login_rejected")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid passcode")
	}

	s.limiter.Reset(ctx, clientIP, ratelimit.ActionAdminLogin)

	token, err := s.issue(pkgauth.AdminSessionTTL, pkgauth.Claims{IsAdmin: true})
	if err != nil {
		return nil, err
	}
	return &AdminLoginResponse{Success: true, Token: token}, nil
}

func (s *service) passcodeMatches(passcode string) (bool, error) {
	if hash := strings.TrimSpace(s.admin.PasscodeHash); hash != "" {
		return security.VerifyPasscode(passcode, hash)
	}
	if s.admin.Passcode == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(passcode), []byte(s.admin.Passcode)) == 1, nil
}

func (s *service) issue(ttl time.Duration, claims pkgauth.Claims) (string, error) {
	token, err := pkgauth.Issue(s.jwt.Secret, s.now(), ttl, claims)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue token")
	}
	return token, nil
}

func (s *service) link(kind, token string) string {
	return fmt.Sprintf("%s/%s/%s", s.frontendURL, kind, token)
}

func sessionClaims(user *models.User) pkgauth.Claims {
	return pkgauth.Claims{
		UserID:       user.ID.String(),
		ConvexUserID: user.ID.String(),
		Email:        user.Email,
	}
}

func tooManyAttempts(result ratelimit.Result) error {
	return pkgerrors.RateLimited(
		fmt.Sprintf("Too many attempts. Try again in %d seconds.", result.RetryAfterSeconds()),
		result.RetryAfter,
	)
}

func wrapCreate(err error) error {
	if db.IsUniqueViolation(err, usersEmailIndex) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
