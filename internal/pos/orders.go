package pos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

func newID() string { return uuid.NewString() }

// OrderItemInput is one requested line of a new order.
type OrderItemInput struct {
	ProductID string
	Quantity  int
	Note      string
}

// CreateOrderInput carries the arguments of a new order.
type CreateOrderInput struct {
	Items   []OrderItemInput
	UserID  string
	TableID string
	Now     time.Time
}

// CreateOrderResult reports the created order and any soft stock violations.
type CreateOrderResult struct {
	Order    state.Order
	Warnings []StockWarning
}

type stockDeduction struct {
	ingredient *state.Ingredient
	quantity   decimal.Decimal
}

// CreateOrder validates the requested lines against the menu recipes,
// deducts ingredient stock and appends one SALE movement per deduction.
// Under the strict policy insufficient stock aborts the whole order before
// any state change; under the permissive policy it warns and proceeds.
func (m *Mutator) CreateOrder(ctx context.Context, st *state.AppState, in CreateOrderInput) (*CreateOrderResult, error) {
	if len(in.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}

	items := make([]state.OrderItem, 0, len(in.Items))
	total := decimal.Zero
	required := map[string]decimal.Decimal{}
	ingredientOrder := []string{}

	for _, line := range in.Items {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		product := st.FindProduct(line.ProductID)
		if product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product "+line.ProductID)
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		for _, recipe := range product.Recipe {
			if _, ok := required[recipe.IngredientID]; !ok {
				ingredientOrder = append(ingredientOrder, recipe.IngredientID)
			}
			required[recipe.IngredientID] = required[recipe.IngredientID].Add(recipe.Quantity.Mul(qty))
		}
		items = append(items, state.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			Note:      line.Note,
		})
		total = total.Add(product.Price.Mul(qty))
	}

	// Resolve every ingredient up front so a missing one rejects the whole
	// order with no partial side effects.
	deductions := make([]stockDeduction, 0, len(required))
	warnings := []StockWarning{}
	for _, ingredientID := range ingredientOrder {
		qty := required[ingredientID]
		ingredient := st.FindIngredient(ingredientID)
		if ingredient == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown ingredient "+ingredientID)
		}
		if ingredient.Stock.LessThan(qty) {
			if m.policy == StockPolicyStrict {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
					"insufficient stock for "+ingredient.Name)
			}
			warnings = append(warnings, StockWarning{
				IngredientID: ingredient.ID,
				Name:         ingredient.Name,
				Required:     qty,
				Available:    ingredient.Stock,
				Resulting:    ingredient.Stock.Sub(qty),
			})
		}
		deductions = append(deductions, stockDeduction{ingredient: ingredient, quantity: qty})
	}

	order := state.Order{
		ID:            m.ids(),
		Number:        st.NextOrderNumber(),
		Items:         items,
		Total:         total,
		Status:        enums.OrderStatusPending,
		KitchenStatus: enums.KitchenStatusQueued,
		UserID:        in.UserID,
		TableID:       in.TableID,
		Version:       1,
		Date:          in.Now.UnixMilli(),
		UpdatedAt:     in.Now.UnixMilli(),
	}

	for _, d := range deductions {
		d.ingredient.Stock = d.ingredient.Stock.Sub(d.quantity)
		st.StockMovements = append(st.StockMovements, state.StockMovement{
			ID:           m.ids(),
			IngredientID: d.ingredient.ID,
			Quantity:     d.quantity.Neg(),
			Type:         enums.MovementTypeSale,
			Date:         in.Now.UnixMilli(),
			Reference:    order.ID,
		})
	}

	st.Orders = append(st.Orders, order)
	st.Touch(in.Now)

	for _, w := range warnings {
		m.metrics.IncStockWarning(w.IngredientID)
		logCtx := m.logg.WithOrderID(ctx, order.ID)
		logCtx = m.logg.WithFields(logCtx, map[string]any{
			"ingredient": w.Name,
			"required":   w.Required.String(),
			"available":  w.Available.String(),
			"resulting":  w.Resulting.String(),
		})
		m.logg.Warn(logCtx, "sale pushed ingredient stock negative")
	}

	return &CreateOrderResult{Order: order, Warnings: warnings}, nil
}

// UpdateKitchenStatus moves an order along its preparation lifecycle. Any
// status may overwrite any other; ordering discipline lives in the UI.
func (m *Mutator) UpdateKitchenStatus(ctx context.Context, st *state.AppState, orderID string, status enums.KitchenStatus, now time.Time) (*state.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid kitchen status "+status.String())
	}
	order := st.FindOrder(orderID)
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	order.KitchenStatus = status
	order.Version++
	order.UpdatedAt = now.UnixMilli()
	st.Touch(now)
	return order, nil
}

// UpdateOrderItems replaces an order's line items with a new set, keeping
// price/name snapshots consistent with the current menu. No stock side
// effects: the original sale deductions stand.
func (m *Mutator) UpdateOrderItems(ctx context.Context, st *state.AppState, orderID string, inputs []OrderItemInput, now time.Time) (*state.Order, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	order := st.FindOrder(orderID)
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be edited")
	}

	items := make([]state.OrderItem, 0, len(inputs))
	total := decimal.Zero
	for _, line := range inputs {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		product := st.FindProduct(line.ProductID)
		if product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product "+line.ProductID)
		}
		items = append(items, state.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			Note:      line.Note,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	order.Items = items
	order.Total = total
	order.Version++
	order.UpdatedAt = now.UnixMilli()
	st.Touch(now)
	return order, nil
}

// CompleteOrder transitions a pending order to completed and records how it
// was paid. The invoice number is optional: payment must never block on the
// archival collaborator, so a failed archive completes the order without one.
func (m *Mutator) CompleteOrder(ctx context.Context, st *state.AppState, orderID string, method enums.PaymentMethod, paidByUserID, invoiceNumber string, now time.Time) (*state.Order, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method "+method.String())
	}
	order := st.FindOrder(orderID)
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
	}

	order.Status = enums.OrderStatusCompleted
	order.PaymentMethod = method
	order.PaidByUserID = paidByUserID
	order.InvoiceNumber = invoiceNumber
	order.Version++
	order.UpdatedAt = now.UnixMilli()
	st.Touch(now)
	return order, nil
}

// CancelOrder transitions a pending order to cancelled.
func (m *Mutator) CancelOrder(ctx context.Context, st *state.AppState, orderID string, now time.Time) (*state.Order, error) {
	order := st.FindOrder(orderID)
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
	}

	order.Status = enums.OrderStatusCancelled
	order.Version++
	order.UpdatedAt = now.UnixMilli()
	st.Touch(now)
	return order, nil
}
