package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mksagencies/storefront-backend/internal/notifications"
	"github.com/mksagencies/storefront-backend/internal/ratelimit"
	"github.com/mksagencies/storefront-backend/internal/users"
	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/db/dbtest"
	"github.com/mksagencies/storefront-backend/pkg/db/models"
	"github.com/mksagencies/storefront-backend/pkg/enums"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
	"github.com/mksagencies/storefront-backend/pkg/google"
	"github.com/mksagencies/storefront-backend/pkg/security"
)

const testSecret = "test-secret"

type fakeLimiter struct {
	blocked    bool
	retryAfter time.Duration
	increments map[string]int
	resets     map[string]int
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{increments: map[string]int{}, resets: map[string]int{}}
}

func (f *fakeLimiter) Check(_ context.Context, _, _ string) ratelimit.Result {
	if f.blocked {
		return ratelimit.Result{Allowed: false, RetryAfter: f.retryAfter}
	}
	return ratelimit.Result{Allowed: true, Remaining: 3}
}

func (f *fakeLimiter) Increment(_ context.Context, identity, action string) {
	f.increments[action+":"+identity]++
}

func (f *fakeLimiter) Reset(_ context.Context, identity, action string) {
	f.resets[action+":"+identity]++
}

type fakeDispatcher struct {
	sent []notifications.Notification
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, n notifications.Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

type fakeGoogle struct {
	profile google.Profile
	err     error
}

func (f fakeGoogle) Verify(context.Context, string) (google.Profile, error) {
	return f.profile, f.err
}

type fixture struct {
	svc        Service
	repo       *users.Repository
	limiter    *fakeLimiter
	dispatcher *fakeDispatcher
	now        time.Time
	token      string
}

func newFixture(t *testing.T, mutate func(*ServiceParams)) *fixture {
	t.Helper()
	f := &fixture{
		repo:       users.NewRepository(dbtest.Open(t)),
		limiter:    newFakeLimiter(),
		dispatcher: &fakeDispatcher{},
		now:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		token:      strings.Repeat("a", pkgauth.OneTimeTokenLength),
	}
	params := ServiceParams{
		Users:       f.repo,
		Limiter:     f.limiter,
		Dispatcher:  f.dispatcher,
		Google:      fakeGoogle{profile: google.Profile{Subject: "g-1", Email: "asha@example.com", EmailVerified: true, Name: "Asha", Picture: "https://img/asha.png"}},
		JWT:         config.JWTConfig{Secret: testSecret},
		Admin:       config.AdminConfig{Passcode: "letmein"},
		FrontendURL: "https://mksagencies.com/",
		Now:         func() time.Time { return f.now },
		NewToken:    func() (string, error) { return f.token, nil },
	}
	if mutate != nil {
		mutate(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func newUser(email string, name *string, verified bool) *models.User {
	return &models.User{Email: email, Name: name, Provider: enums.AuthProviderGoogle, EmailVerified: verified}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code, msg string) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
	if msg != "" {
		assert.Equal(t, msg, typed.PublicMessage())
	}
}

func TestGoogleLoginCreatesUserAndIssuesDayToken(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.GoogleLogin(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", resp.User.Email)
	assert.Equal(t, enums.AuthProviderGoogle, resp.User.Provider)
	assert.True(t, resp.User.EmailVerified)
	assert.Equal(t, "https://img/asha.png", resp.User.AvatarURL)

	claims, err := pkgauth.Verify(testSecret, resp.Token, f.now.Add(23*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, resp.User.ID, claims.ConvexUserID)
	assert.Equal(t, "asha@example.com", claims.Email)

	_, err = pkgauth.Verify(testSecret, resp.Token, f.now.Add(24*time.Hour+time.Second))
	assert.Error(t, err)
}

func TestGoogleLoginPatchesExistingUserWithoutErasingFields(t *testing.T) {
	f := newFixture(t, func(p *ServiceParams) {
		p.Google = fakeGoogle{profile: google.Profile{Email: "asha@example.com", EmailVerified: false}}
	})
	ctx := context.Background()

	name := "Asha Original"
	require.NoError(t, f.repo.Create(ctx, newUser("asha@example.com", &name, true)))

	resp, err := f.svc.GoogleLogin(ctx, "id-token")
	require.NoError(t, err)
	assert.Equal(t, "Asha Original", resp.User.Name)
	assert.True(t, resp.User.EmailVerified, "verified email is never downgraded")
}

func TestGoogleLoginErrors(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.GoogleLogin(context.Background(), " ")
	requireCode(t, err, pkgerrors.CodeValidation, "Credential required")

	f = newFixture(t, func(p *ServiceParams) { p.Google = fakeGoogle{err: google.ErrInvalidCredential} })
	_, err = f.svc.GoogleLogin(context.Background(), "bad")
	requireCode(t, err, pkgerrors.CodeValidation, "Invalid credential")

	f = newFixture(t, func(p *ServiceParams) { p.Google = fakeGoogle{err: errors.New("timeout")} })
	_, err = f.svc.GoogleLogin(context.Background(), "x")
	requireCode(t, err, pkgerrors.CodeDependency, "Internal server error")
}

func TestGuestSessionSendsVerificationAndIssuesGuestToken(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.GuestSession(context.Background(), GuestInput{Name: "Ravi", Email: "Ravi@Example.com", Phone: "9876543210"})
	require.NoError(t, err)
	assert.True(t, resp.VerificationRequired)
	assert.Equal(t, "email", resp.VerificationMethod)
	assert.True(t, resp.User.IsGuest)
	require.NotNil(t, resp.User.IsVerified)
	assert.False(t, *resp.User.IsVerified)

	claims, err := pkgauth.Verify(testSecret, resp.Token, f.now)
	require.NoError(t, err)
	assert.True(t, claims.IsGuest)
	assert.Equal(t, resp.User.ID, claims.GuestID)
	assert.Equal(t, resp.User.ID, claims.Subject())

	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, enums.NotificationTypeGuestVerification, f.dispatcher.sent[0].Type)
	payload := f.dispatcher.sent[0].Payload.(notifications.GuestVerification)
	assert.Equal(t, "ravi@example.com", payload.To)
	assert.Equal(t, "https://mksagencies.com/verify/"+f.token, payload.VerificationLink)

	stored, err := f.repo.FindByID(context.Background(), uuid.MustParse(resp.User.ID))
	require.NoError(t, err)
	assert.Equal(t, enums.AuthProviderGuest, stored.Provider)
	assert.True(t, stored.IsGuest)
	assert.False(t, stored.EmailVerified)
}

func TestGuestSessionRequiresAllFields(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.GuestSession(context.Background(), GuestInput{Name: "Ravi", Email: "r@x.co"})
	requireCode(t, err, pkgerrors.CodeValidation, "Name, email, and phone are required")
	assert.Empty(t, f.dispatcher.sent)
}

func TestGuestSessionMailFailureIsServerError(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatcher.err = errors.New("mailer down")

	_, err := f.svc.GuestSession(context.Background(), GuestInput{Name: "Ravi", Email: "r@x.co", Phone: "1"})
	requireCode(t, err, pkgerrors.CodeInternal, "Failed to send verification email")
}

func TestGuestSessionNeverResolvesToRegisteredAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	account, err := f.svc.GoogleLogin(ctx, "id-token")
	require.NoError(t, err)

	guest, err := f.svc.GuestSession(ctx, GuestInput{Name: "Mallory", Email: "Asha@Example.com", Phone: "1"})
	require.NoError(t, err)
	assert.NotEqual(t, account.User.ID, guest.User.ID)

	claims, err := pkgauth.Verify(testSecret, guest.Token, f.now)
	require.NoError(t, err)
	assert.NotEqual(t, account.User.ID, claims.Subject())
	assert.NotEqual(t, account.User.ID, claims.ConvexUserID)

	stored, err := f.repo.FindByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.User.ID, stored.ID.String())
	require.NotNil(t, stored.Name)
	assert.Equal(t, "Asha", *stored.Name)
	assert.Nil(t, stored.Phone)
	assert.Equal(t, enums.AuthProviderGoogle, stored.Provider)
}

func TestGuestSessionsForSameEmailAreDistinct(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.GuestSession(ctx, GuestInput{Name: "Ravi", Email: "r@x.co", Phone: "1"})
	require.NoError(t, err)
	f.token = strings.Repeat("b", pkgauth.OneTimeTokenLength)
	second, err := f.svc.GuestSession(ctx, GuestInput{Name: "Ravi K", Email: "r@x.co", Phone: "2"})
	require.NoError(t, err)
	assert.NotEqual(t, first.User.ID, second.User.ID)
}

func TestGuestSessionKeepsOutstandingLoginLink(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SendLoginLink(ctx, "1.2.3.4", "r@x.co")
	require.NoError(t, err)
	loginToken := f.token

	f.token = strings.Repeat("c", pkgauth.OneTimeTokenLength)
	_, err = f.svc.GuestSession(ctx, GuestInput{Name: "Ravi", Email: "r@x.co", Phone: "1"})
	require.NoError(t, err)

	resp, err := f.svc.VerifyLoginLink(ctx, loginToken)
	require.NoError(t, err)
	assert.Equal(t, "r@x.co", resp.User.Email)
	assert.False(t, resp.User.IsGuest)
}

func TestVerifyGuest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	guest, err := f.svc.GuestSession(ctx, GuestInput{Name: "Ravi", Email: "r@x.co", Phone: "1"})
	require.NoError(t, err)

	_, err = f.svc.VerifyGuest(ctx, "unknown")
	requireCode(t, err, pkgerrors.CodeValidation, "Invalid token")

	resp, err := f.svc.VerifyGuest(ctx, f.token)
	require.NoError(t, err)
	assert.True(t, resp.Verified)
	assert.Equal(t, guest.User.ID, resp.UserID)

	_, err = f.svc.VerifyGuest(ctx, f.token)
	requireCode(t, err, pkgerrors.CodeValidation, "Invalid token")
}

func TestVerifyGuestExpired(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.GuestSession(ctx, GuestInput{Name: "Ravi", Email: "r@x.co", Phone: "1"})
	require.NoError(t, err)

	f.now = f.now.Add(OneTimeTokenTTL + time.Minute)
	_, err = f.svc.VerifyGuest(ctx, f.token)
	requireCode(t, err, pkgerrors.CodeValidation, "Token expired")
}

func TestSendLoginLinkNewAndExistingUser(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resp, err := f.svc.SendLoginLink(ctx, "203.0.113.9", "New@Example.com")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.IsNewUser)
	assert.Equal(t, "Login link sent to your email", resp.Message)
	assert.Equal(t, 1, f.limiter.increments["email-login:203.0.113.9"])

	require.Len(t, f.dispatcher.sent, 1)
	payload := f.dispatcher.sent[0].Payload.(notifications.EmailLogin)
	assert.Equal(t, "new@example.com", payload.To)
	assert.Equal(t, "https://mksagencies.com/login/"+f.token, payload.LoginLink)

	resp, err = f.svc.SendLoginLink(ctx, "203.0.113.9", "new@example.com")
	require.NoError(t, err)
	assert.False(t, resp.IsNewUser)
	assert.Equal(t, 2, f.limiter.increments["email-login:203.0.113.9"])
}

func TestSendLoginLinkValidation(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.SendLoginLink(context.Background(), "ip", "")
	requireCode(t, err, pkgerrors.CodeValidation, "Email is required")

	_, err = f.svc.SendLoginLink(context.Background(), "ip", "not-an-email")
	requireCode(t, err, pkgerrors.CodeValidation, "Please enter a valid email address")
}

func TestSendLoginLinkRateLimited(t *testing.T) {
	f := newFixture(t, nil)
	f.limiter.blocked = true
	f.limiter.retryAfter = 300 * time.Second

	_, err := f.svc.SendLoginLink(context.Background(), "ip", "a@b.co")
	requireCode(t, err, pkgerrors.CodeRateLimit, "Too many attempts. Try again in 300 seconds.")
	assert.Equal(t, 300*time.Second, pkgerrors.As(err).RetryAfter())
	assert.Empty(t, f.dispatcher.sent)
	assert.Zero(t, f.limiter.increments["email-login:ip"])
}

func TestSendLoginLinkMailFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatcher.err = errors.New("boom")
	_, err := f.svc.SendLoginLink(context.Background(), "ip", "a@b.co")
	requireCode(t, err, pkgerrors.CodeInternal, "Failed to send login email")
}

func TestVerifyLoginLinkIssuesWeekToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.SendLoginLink(ctx, "ip", "a@b.co")
	require.NoError(t, err)

	resp, err := f.svc.VerifyLoginLink(ctx, f.token)
	require.NoError(t, err)
	assert.True(t, resp.User.EmailVerified)
	assert.Equal(t, enums.AuthProviderEmail, resp.User.Provider)

	claims, err := pkgauth.Verify(testSecret, resp.Token, f.now.Add(6*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	_, err = f.svc.VerifyLoginLink(ctx, f.token)
	requireCode(t, err, pkgerrors.CodeValidation, "Invalid or expired login link")
}

func TestVerifyLoginLinkExpired(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.SendLoginLink(ctx, "ip", "a@b.co")
	require.NoError(t, err)

	f.now = f.now.Add(25 * time.Hour)
	_, err = f.svc.VerifyLoginLink(ctx, f.token)
	requireCode(t, err, pkgerrors.CodeValidation, "Login link has expired")
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.AdminLogin(ctx, "ip", "nope")
	requireCode(t, err, pkgerrors.CodeUnauthorized, "Invalid passcode")
	assert.Equal(t, 1, f.limiter.increments["admin-login:ip"])

	resp, err := f.svc.AdminLogin(ctx, "ip", "letmein")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, f.limiter.resets["admin-login:ip"])

	claims, err := pkgauth.Verify(testSecret, resp.Token, f.now.Add(604799*time.Second))
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	assert.Empty(t, claims.Subject())
}

func TestAdminLoginRequiresPasscode(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.AdminLogin(context.Background(), "ip", "")
	requireCode(t, err, pkgerrors.CodeValidation, "Passcode required")
}

func TestAdminLoginLockedOut(t *testing.T) {
	f := newFixture(t, nil)
	f.limiter.blocked = true
	f.limiter.retryAfter = 900 * time.Second

	_, err := f.svc.AdminLogin(context.Background(), "ip", "letmein")
	requireCode(t, err, pkgerrors.CodeRateLimit, "Too many attempts. Try again in 900 seconds.")
}

func TestAdminLoginWithPasscodeHash(t *testing.T) {
	hash, err := security.HashPasscode("s3cret", config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	require.NoError(t, err)

	f := newFixture(t, func(p *ServiceParams) {
		p.Admin = config.AdminConfig{Passcode: "ignored", PasscodeHash: hash}
	})

	_, err = f.svc.AdminLogin(context.Background(), "ip", "ignored")
	requireCode(t, err, pkgerrors.CodeUnauthorized, "Invalid passcode")

	resp, err := f.svc.AdminLogin(context.Background(), "ip", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

func TestWrapCreateOnlyTreatsEmailIndexAsConflict(t *testing.T) {
	err := wrapCreate(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
	requireCode(t, err, pkgerrors.CodeConflict, "email already registered")

	err = wrapCreate(&pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"})
	requireCode(t, err, pkgerrors.CodeDependency, "")
}
