package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the policy the POS UI shells need when they talk to a
// device agent or the sync service from a browser context.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "capacitor://localhost", "ionic://localhost"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
