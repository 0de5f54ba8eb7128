package queue

import (
	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

// CreateOrderAction carries the fully computed order so replay never
// re-runs validation against state that has moved on since the sale.
// The stock movements double as the ingredient deltas to apply remotely.
type CreateOrderAction struct {
	RestaurantID   string                `json:"restaurant_id"`
	Order          state.Order           `json:"order"`
	StockMovements []state.StockMovement `json:"stock_movements"`
}

// UpdateKitchenStatusAction records a kitchen transition made offline.
type UpdateKitchenStatusAction struct {
	RestaurantID  string              `json:"restaurant_id"`
	OrderID       string              `json:"order_id"`
	KitchenStatus enums.KitchenStatus `json:"kitchen_status"`
}

// UpdateOrderAction carries the edited order; replay overlays its items
// and total onto whatever version the remote document holds now.
type UpdateOrderAction struct {
	RestaurantID string      `json:"restaurant_id"`
	Order        state.Order `json:"order"`
}
