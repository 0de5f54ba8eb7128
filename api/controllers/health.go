package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/comptoirlabs/comptoir-backend/api/responses"
	"github.com/comptoirlabs/comptoir-backend/pkg/config"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
)

// Pinger is the health surface each backing dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness. Devices probe this endpoint to
// decide between the online and offline paths, so it must stay cheap.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady reports whether the backing services answer. deps maps a
// dependency name to its pinger; nil entries are skipped.
func HealthReady(logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				failCtx := ctx
				if logg != nil {
					failCtx = logg.WithField(ctx, "dependency", name)
				}
				responses.WriteError(failCtx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
