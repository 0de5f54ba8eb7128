package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comptoirlabs/comptoir-backend/api/controllers"
	"github.com/comptoirlabs/comptoir-backend/api/middleware"
	"github.com/comptoirlabs/comptoir-backend/internal/remotestate"
	"github.com/comptoirlabs/comptoir-backend/pkg/config"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/redis"
)

// NewRouter assembles the sync service's HTTP surface.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisClient *redis.Client,
	stateService *remotestate.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// Cheap liveness at the root for device connectivity probes.
	r.Get("/healthz", controllers.HealthLive(cfg))

	readiness := map[string]controllers.Pinger{"database": dbPinger}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(logg, readiness))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/v1/state", func(r chi.Router) {
		r.Use(middleware.DeviceAuth(cfg.JWT, logg))
		r.Get("/{restaurantID}", controllers.GetState(stateService, logg))
		r.With(middleware.WriteLimit(cfg.WriteLimit, redisClient, logg)).
			Put("/{restaurantID}", controllers.PutState(stateService, logg))
	})

	return r
}
