package controllers

import (
	"net/http"

	"github.com/mksagencies/storefront-backend/api/middleware"
	"github.com/mksagencies/storefront-backend/api/responses"
	"github.com/mksagencies/storefront-backend/api/validators"
	"github.com/mksagencies/storefront-backend/internal/auth"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

type googleLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type adminLoginRequest struct {
	Passcode string `json:"passcode"`
}

// GoogleLogin exchanges a Google ID token for a session token.
func GoogleLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body googleLoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := svc.GoogleLogin(r.Context(), body.Credential)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func GuestSession(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.GuestInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Name = validators.SanitizeString(body.Name, 120)
		body.Email = validators.NormalizeEmail(body.Email)
		body.Phone = validators.SanitizeString(body.Phone, 32)

		resp, err := svc.GuestSession(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func VerifyGuest(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body tokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := svc.VerifyGuest(r.Context(), body.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// SendLoginLink mails a magic link. Rate limited per client IP.
func SendLoginLink(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body emailRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := svc.SendLoginLink(r.Context(), middleware.ClientIPFromContext(r.Context()), validators.NormalizeEmail(body.Email))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func VerifyLoginLink(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body tokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := svc.VerifyLoginLink(r.Context(), body.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// VerifyToken echoes the caller's claims. Runs behind Authenticator.Required.
func VerifyToken(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"valid": true, "user": claims})
	}
}

// AdminLogin trades the shared passcode for an admin token. Rate limited
// per client IP with lockout.
func AdminLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body adminLoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := svc.AdminLogin(r.Context(), middleware.ClientIPFromContext(r.Context()), body.Passcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
