package pos

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

// SupplierOrderItemInput is one purchased line of a new supplier order.
type SupplierOrderItemInput struct {
	IngredientID string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
}

// CreateSupplierOrder records a pending purchase order.
func (m *Mutator) CreateSupplierOrder(ctx context.Context, st *state.AppState, partnerID string, inputs []SupplierOrderItemInput, now time.Time) (*state.SupplierOrder, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier order needs at least one item")
	}

	items := make([]state.SupplierOrderItem, 0, len(inputs))
	total := decimal.Zero
	for _, line := range inputs {
		if !line.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if line.UnitCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
		}
		if st.FindIngredient(line.IngredientID) == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown ingredient "+line.IngredientID)
		}
		items = append(items, state.SupplierOrderItem{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
			UnitCost:     line.UnitCost,
		})
		total = total.Add(line.Quantity.Mul(line.UnitCost))
	}

	order := state.SupplierOrder{
		ID:        m.ids(),
		PartnerID: partnerID,
		Items:     items,
		TotalCost: total,
		Status:    enums.SupplierOrderStatusPending,
		Date:      now.UnixMilli(),
	}
	st.SupplierOrders = append(st.SupplierOrders, order)
	st.Touch(now)
	return &st.SupplierOrders[len(st.SupplierOrders)-1], nil
}

// ReceiveSupplierOrder marks a pending purchase as delivered: stock goes up,
// the weighted-average cost is recomputed per line and one PURCHASE movement
// is appended per ingredient. Receiving twice is a no-op.
func (m *Mutator) ReceiveSupplierOrder(ctx context.Context, st *state.AppState, orderID string, now time.Time) (*state.SupplierOrder, error) {
	order := st.FindSupplierOrder(orderID)
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier order not found")
	}
	if order.Status == enums.SupplierOrderStatusReceived {
		return order, nil
	}

	// Resolve all ingredients before mutating anything.
	ingredients := make([]*state.Ingredient, len(order.Items))
	for i, line := range order.Items {
		ingredient := st.FindIngredient(line.IngredientID)
		if ingredient == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown ingredient "+line.IngredientID)
		}
		ingredients[i] = ingredient
	}

	for i, line := range order.Items {
		ingredient := ingredients[i]
		ingredient.AvgCost = weightedAverageCost(ingredient.Stock, ingredient.AvgCost, line.Quantity, line.UnitCost)
		ingredient.Stock = ingredient.Stock.Add(line.Quantity)
		st.StockMovements = append(st.StockMovements, state.StockMovement{
			ID:           m.ids(),
			IngredientID: ingredient.ID,
			Quantity:     line.Quantity,
			Type:         enums.MovementTypePurchase,
			Date:         now.UnixMilli(),
			Reference:    order.ID,
		})
	}

	order.Status = enums.SupplierOrderStatusReceived
	order.ReceivedAt = now.UnixMilli()
	st.Touch(now)
	return order, nil
}

// weightedAverageCost recomputes the running average unit cost on receipt.
// A zero or negative prior stock resets the average to the received cost.
func weightedAverageCost(oldStock, oldAvg, recvQty, unitCost decimal.Decimal) decimal.Decimal {
	if !oldStock.IsPositive() {
		return unitCost
	}
	denominator := oldStock.Add(recvQty)
	if denominator.IsZero() {
		return unitCost
	}
	return oldStock.Mul(oldAvg).Add(recvQty.Mul(unitCost)).Div(denominator)
}

// AdjustIngredientStock is the administrative correction path: it sets the
// stock level directly and records the delta as an ADJUSTMENT movement so
// the ledger stays reconstructible.
func (m *Mutator) AdjustIngredientStock(ctx context.Context, st *state.AppState, ingredientID string, newStock decimal.Decimal, reason string, now time.Time) (*state.Ingredient, error) {
	ingredient := st.FindIngredient(ingredientID)
	if ingredient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
	}

	delta := newStock.Sub(ingredient.Stock)
	if delta.IsZero() {
		return ingredient, nil
	}

	ingredient.Stock = newStock
	st.StockMovements = append(st.StockMovements, state.StockMovement{
		ID:           m.ids(),
		IngredientID: ingredient.ID,
		Quantity:     delta,
		Type:         enums.MovementTypeAdjustment,
		Date:         now.UnixMilli(),
		Reference:    reason,
	})
	st.Touch(now)

	logCtx := m.logg.WithFields(ctx, map[string]any{
		"ingredient": ingredient.Name,
		"delta":      delta.String(),
		"reason":     reason,
	})
	m.logg.Info(logCtx, "ingredient stock corrected")
	return ingredient, nil
}
