package middleware

import (
	"net/http"
	"strings"

	"github.com/comptoirlabs/comptoir-backend/api/responses"
	pkgauth "github.com/comptoirlabs/comptoir-backend/pkg/auth"
	"github.com/comptoirlabs/comptoir-backend/pkg/config"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
)

// DeviceAuth validates a device bearer token and seeds the request context
// with the device identity.
func DeviceAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseDeviceToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithDevice(r.Context(), claims.RestaurantID, claims.DeviceID, claims.Role)
			if logg != nil {
				ctx = logg.WithRestaurantID(ctx, claims.RestaurantID)
				ctx = logg.WithDeviceID(ctx, claims.DeviceID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
