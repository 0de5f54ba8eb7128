// Package device is the local HTTP surface a POS UI shell talks to. It
// runs inside the device agent and fronts the state container; nothing
// here reaches the network beyond localhost.
package device

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comptoirlabs/comptoir-backend/api/responses"
	"github.com/comptoirlabs/comptoir-backend/internal/pos"
	"github.com/comptoirlabs/comptoir-backend/internal/store"
	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
)

type handler struct {
	store    *store.Store
	logg     *logger.Logger
	validate *validator.Validate
}

func (h *handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request validation failed")
	}
	return nil
}

func (h *handler) getState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot()
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, snap)
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := h.decode(r, &req); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	items := make([]pos.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, pos.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Note:      item.Note,
		})
	}
	result, err := h.store.CreateOrder(r.Context(), pos.CreateOrderInput{
		Items:   items,
		UserID:  req.UserID,
		TableID: req.TableID,
	})
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, result)
}

func (h *handler) updateKitchenStatus(w http.ResponseWriter, r *http.Request) {
	var req updateKitchenStatusRequest
	if err := h.decode(r, &req); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	status, err := enums.ParseKitchenStatus(req.Status)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kitchen status"))
		return
	}

	order, err := h.store.UpdateKitchenStatus(r.Context(), chi.URLParam(r, "orderID"), status)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, order)
}

func (h *handler) updateOrderItems(w http.ResponseWriter, r *http.Request) {
	var req updateOrderItemsRequest
	if err := h.decode(r, &req); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	items := make([]pos.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, pos.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Note:      item.Note,
		})
	}
	order, err := h.store.UpdateOrderItems(r.Context(), chi.URLParam(r, "orderID"), items)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, order)
}

func (h *handler) payOrder(w http.ResponseWriter, r *http.Request) {
	var req payOrderRequest
	if err := h.decode(r, &req); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
		return
	}

	order, err := h.store.PayOrder(r.Context(), chi.URLParam(r, "orderID"), method, req.PaidByUserID)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, order)
}

func (h *handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.CancelOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, order)
}

func (h *handler) createSupplierOrder(w http.ResponseWriter, r *http.Request) {
	var req createSupplierOrderRequest
	if err := h.decode(r, &req); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	items := make([]pos.SupplierOrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, pos.SupplierOrderItemInput{
			IngredientID: item.IngredientID,
			Quantity:     item.Quantity,
			UnitCost:     item.UnitCost,
		})
	}
	order, err := h.store.CreateSupplierOrder(r.Context(), req.PartnerID, items)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, order)
}

func (h *handler) receiveSupplierOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.ReceiveSupplierOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, order)
}

func (h *handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := h.decode(r, &req); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	ingredient, err := h.store.AdjustIngredientStock(r.Context(), chi.URLParam(r, "ingredientID"), req.NewStock, req.Reason)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, ingredient)
}

func (h *handler) declareCash(w http.ResponseWriter, r *http.Request) {
	var req declareCashRequest
	if err := h.decode(r, &req); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	kind, err := enums.ParseCashDeclarationType(req.Type)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid declaration type"))
		return
	}

	declaration, err := h.store.DeclareCash(r.Context(), req.UserID, kind, req.Amount)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, declaration)
}

func (h *handler) addExpense(w http.ResponseWriter, r *http.Request) {
	var req addExpenseRequest
	if err := h.decode(r, &req); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	expense, err := h.store.AddExpense(r.Context(), req.Label, req.Category, req.Amount)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, expense)
}

func (h *handler) requestPinReset(w http.ResponseWriter, r *http.Request) {
	var req requestPinResetRequest
	if err := h.decode(r, &req); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	reset, err := h.store.RequestPinReset(r.Context(), req.UserID)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, reset)
}

func (h *handler) resolvePinReset(w http.ResponseWriter, r *http.Request) {
	var req resolvePinResetRequest
	if err := h.decode(r, &req); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	if err := h.store.ResolvePinReset(r.Context(), chi.URLParam(r, "requestID"), req.PIN); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "resolved"})
}

func (h *handler) resync(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Resync(r.Context()); err != nil {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resync failed"))
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "synced"})
}

func (h *handler) queueStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := h.store.PendingActions(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]int64{"pending": pending})
}
