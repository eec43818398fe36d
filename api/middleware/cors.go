package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS opens the API to any origin. Auth is bearer-only, so no credentials
// are allowed.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         86400,
	}).Handler
}
