package controllers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comptoirlabs/comptoir-backend/api/middleware"
	"github.com/comptoirlabs/comptoir-backend/api/responses"
	"github.com/comptoirlabs/comptoir-backend/internal/remotestate"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/outbox"
)

// maxDocumentBytes bounds an uploaded state document. Restaurant-scale
// state stays well under this even after years of orders.
const maxDocumentBytes = 16 << 20

// GetState returns the canonical document for the caller's restaurant.
func GetState(svc *remotestate.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		restaurantID := chi.URLParam(r, "restaurantID")
		if restaurantID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required"))
			return
		}
		if middleware.RestaurantIDFromContext(ctx) != restaurantID {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token not valid for this restaurant"))
			return
		}

		doc, err := svc.Fetch(ctx, restaurantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc.Payload)
	}
}

// PutState blindly overwrites the canonical document with the uploaded
// one. Conflict resolution happens on the reading side.
func PutState(svc *remotestate.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		restaurantID := chi.URLParam(r, "restaurantID")
		if restaurantID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required"))
			return
		}
		if middleware.RestaurantIDFromContext(ctx) != restaurantID {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token not valid for this restaurant"))
			return
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading request body"))
			return
		}
		if len(raw) > maxDocumentBytes {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "state document too large"))
			return
		}

		device := &outbox.DeviceRef{
			RestaurantID: restaurantID,
			DeviceID:     middleware.DeviceIDFromContext(ctx),
			Role:         middleware.DeviceRoleFromContext(ctx),
		}
		stored, err := svc.Upsert(ctx, device, restaurantID, raw)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"restaurantId":  stored.RestaurantID,
			"lastUpdatedAt": stored.LastUpdatedAt,
		})
	}
}
