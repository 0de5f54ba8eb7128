package middleware

import (
	"fmt"
	"net/http"

	"github.com/comptoirlabs/comptoir-backend/api/responses"
	"github.com/comptoirlabs/comptoir-backend/pkg/config"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/redis"
)

// WriteLimit caps how often one device may overwrite the state document,
// fixed-window counted in Redis. A limiter outage fails open: sync
// availability beats strict accounting.
func WriteLimit(cfg config.WriteLimitConfig, redisClient *redis.Client, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if redisClient == nil || cfg.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			deviceID := DeviceIDFromContext(r.Context())
			if deviceID == "" {
				next.ServeHTTP(w, r)
				return
			}

			scope := fmt.Sprintf("state_write:%s", deviceID)
			allowed, count, err := redisClient.FixedWindowAllow(r.Context(), scope, int64(cfg.Limit), cfg.Window)
			if err != nil {
				if logg != nil {
					ctx := logg.WithField(r.Context(), "error", err.Error())
					logg.Warn(ctx, "write limiter unavailable, allowing request")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{"count": count, "limit": cfg.Limit})
					logg.Warn(ctx, "device write rate limit exceeded")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many state writes"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
