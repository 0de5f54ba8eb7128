package device

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comptoirlabs/comptoir-backend/api/middleware"
	"github.com/comptoirlabs/comptoir-backend/api/responses"
	"github.com/comptoirlabs/comptoir-backend/internal/store"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
)

// NewRouter assembles the device agent's local HTTP surface.
func NewRouter(st *store.Store, logg *logger.Logger, metricsHandler http.Handler) http.Handler {
	h := &handler{
		store:    st,
		logg:     logg,
		validate: validator.New(),
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", h.getState)
		r.Post("/sync", h.resync)
		r.Get("/queue", h.queueStatus)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Patch("/{orderID}/kitchen-status", h.updateKitchenStatus)
			r.Put("/{orderID}/items", h.updateOrderItems)
			r.Post("/{orderID}/pay", h.payOrder)
			r.Post("/{orderID}/cancel", h.cancelOrder)
		})

		r.Route("/supplier-orders", func(r chi.Router) {
			r.Post("/", h.createSupplierOrder)
			r.Post("/{orderID}/receive", h.receiveSupplierOrder)
		})

		r.Post("/ingredients/{ingredientID}/adjust-stock", h.adjustStock)
		r.Post("/cash-declarations", h.declareCash)
		r.Post("/expenses", h.addExpense)

		r.Route("/pin-resets", func(r chi.Router) {
			r.Post("/", h.requestPinReset)
			r.Post("/{requestID}/resolve", h.resolvePinReset)
		})
	})

	return r
}
