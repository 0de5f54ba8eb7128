package state

import (
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"
)

// ValidateShape checks that a decoded remote document is structurally
// complete before it is allowed anywhere near a merge. A nil collection
// means the field was absent from the payload, which is how truncated or
// partial snapshots present after JSON decoding.
func (s *AppState) ValidateShape() error {
	if s == nil {
		return fmt.Errorf("nil state document")
	}

	var errs []error
	if s.RestaurantID == "" {
		errs = append(errs, fmt.Errorf("missing restaurantId"))
	}
	if s.LastUpdatedAt < 0 {
		errs = append(errs, fmt.Errorf("negative lastUpdatedAt %d", s.LastUpdatedAt))
	}
	for name, collection := range map[string]bool{
		"users":            s.Users == nil,
		"products":         s.Products == nil,
		"ingredients":      s.Ingredients == nil,
		"tables":           s.Tables == nil,
		"orders":           s.Orders == nil,
		"partners":         s.Partners == nil,
		"supplierOrders":   s.SupplierOrders == nil,
		"stockMovements":   s.StockMovements == nil,
		"cashDeclarations": s.CashDeclarations == nil,
		"expenses":         s.Expenses == nil,
		"pinResetRequests": s.PinResetRequests == nil,
	} {
		if collection {
			errs = append(errs, fmt.Errorf("missing collection %s", name))
		}
	}

	seen := make(map[string]struct{}, len(s.Orders))
	for i := range s.Orders {
		o := &s.Orders[i]
		if o.ID == "" {
			errs = append(errs, fmt.Errorf("order at index %d has no id", i))
			continue
		}
		if _, dup := seen[o.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate order id %s", o.ID))
		}
		seen[o.ID] = struct{}{}
		if o.Version < 1 {
			errs = append(errs, fmt.Errorf("order %s has version %d", o.ID, o.Version))
		}
		if !o.Status.IsValid() {
			errs = append(errs, fmt.Errorf("order %s has status %q", o.ID, o.Status))
		}
		if !o.KitchenStatus.IsValid() {
			errs = append(errs, fmt.Errorf("order %s has kitchen status %q", o.ID, o.KitchenStatus))
		}
	}

	return multierr.Combine(errs...)
}

// Decode parses raw JSON into a document and validates its shape.
func Decode(raw []byte) (*AppState, error) {
	var doc AppState
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding state document: %w", err)
	}
	if err := doc.ValidateShape(); err != nil {
		return nil, err
	}
	return &doc, nil
}
