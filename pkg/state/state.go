// Package state holds the per-restaurant document shared by every device.
// The document round-trips losslessly through JSON; currency and stock
// amounts use decimal values, never floats.
package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// AppState is the full business state of one restaurant. LastUpdatedAt is
// the document-level logical clock: the sole arbiter of which snapshot is
// newer across devices, updated atomically with the data it guards.
type AppState struct {
	RestaurantID     string            `json:"restaurantId" validate:"required"`
	Users            []User            `json:"users"`
	Products         []Product         `json:"products"`
	Ingredients      []Ingredient      `json:"ingredients"`
	Tables           []Table           `json:"tables"`
	Orders           []Order           `json:"orders"`
	Partners         []Partner         `json:"partners"`
	SupplierOrders   []SupplierOrder   `json:"supplierOrders"`
	StockMovements   []StockMovement   `json:"stockMovements"`
	CashDeclarations []CashDeclaration `json:"cashDeclarations"`
	Expenses         []Expense         `json:"expenses"`
	PinResetRequests []PinResetRequest `json:"pinResetRequests"`
	LastUpdatedAt    int64             `json:"lastUpdatedAt"`
}

// New returns an empty document with every collection allocated, so an
// encoded fresh state passes shape validation on the receiving side.
func New(restaurantID string) *AppState {
	return &AppState{
		RestaurantID:     restaurantID,
		Users:            []User{},
		Products:         []Product{},
		Ingredients:      []Ingredient{},
		Tables:           []Table{},
		Orders:           []Order{},
		Partners:         []Partner{},
		SupplierOrders:   []SupplierOrder{},
		StockMovements:   []StockMovement{},
		CashDeclarations: []CashDeclaration{},
		Expenses:         []Expense{},
		PinResetRequests: []PinResetRequest{},
	}
}

// Touch advances the logical clock. The clock is wall-clock derived but
// strictly monotonic on one device even when the wall clock stalls or
// steps backwards.
func (s *AppState) Touch(now time.Time) {
	ts := now.UnixMilli()
	if ts <= s.LastUpdatedAt {
		ts = s.LastUpdatedAt + 1
	}
	s.LastUpdatedAt = ts
}

// Clone returns a deep copy via the document's own JSON codec. The codec
// is the canonical representation, so a round trip is loss-free.
func (s *AppState) Clone() (*AppState, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	var out AppState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding state copy: %w", err)
	}
	return &out, nil
}

// FindOrder returns a pointer into the Orders slice, or nil.
func (s *AppState) FindOrder(id string) *Order {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return &s.Orders[i]
		}
	}
	return nil
}

// FindProduct returns a pointer into the Products slice, or nil.
func (s *AppState) FindProduct(id string) *Product {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return &s.Products[i]
		}
	}
	return nil
}

// FindIngredient returns a pointer into the Ingredients slice, or nil.
func (s *AppState) FindIngredient(id string) *Ingredient {
	for i := range s.Ingredients {
		if s.Ingredients[i].ID == id {
			return &s.Ingredients[i]
		}
	}
	return nil
}

// FindSupplierOrder returns a pointer into the SupplierOrders slice, or nil.
func (s *AppState) FindSupplierOrder(id string) *SupplierOrder {
	for i := range s.SupplierOrders {
		if s.SupplierOrders[i].ID == id {
			return &s.SupplierOrders[i]
		}
	}
	return nil
}

// UpsertOrder replaces the order with the same id or appends it.
func (s *AppState) UpsertOrder(order Order) {
	for i := range s.Orders {
		if s.Orders[i].ID == order.ID {
			s.Orders[i] = order
			return
		}
	}
	s.Orders = append(s.Orders, order)
}

// NextOrderNumber computes the per-device sequential display number.
// Devices creating orders concurrently while offline can collide; the
// number is display-only and collisions are accepted.
func (s *AppState) NextOrderNumber() int {
	return len(s.Orders) + 1
}
