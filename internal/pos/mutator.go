// Package pos implements the business mutations of the restaurant state.
// Every operation takes the current state, mutates it in place, advances
// the document clock, and reports its side effects to the caller. The
// calling store owns persistence and remote delivery.
package pos

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/metrics"
)

// StockPolicy decides what happens when an order needs more stock than the
// ledger shows.
type StockPolicy string

const (
	// StockPolicyStrict rejects the order. Used by the primary terminal,
	// which is assumed to see a near-real-time stock view.
	StockPolicyStrict StockPolicy = "strict"
	// StockPolicyPermissive warns and proceeds, letting stock go negative.
	// Used by mobile devices that may be working off a stale snapshot.
	StockPolicyPermissive StockPolicy = "permissive"
)

// StockWarning is the business event raised when a permissive sale pushes
// an ingredient below zero.
type StockWarning struct {
	IngredientID string
	Name         string
	Required     decimal.Decimal
	Available    decimal.Decimal
	Resulting    decimal.Decimal
}

// Mutator applies business mutations under one stock policy.
type Mutator struct {
	policy  StockPolicy
	logg    *logger.Logger
	metrics *metrics.SyncMetrics
	ids     func() string
}

// Option customizes a Mutator.
type Option func(*Mutator)

// WithIDGenerator overrides entity id generation, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(m *Mutator) { m.ids = gen }
}

// NewMutator builds a Mutator with the required dependencies.
func NewMutator(policy StockPolicy, logg *logger.Logger, mt *metrics.SyncMetrics, opts ...Option) (*Mutator, error) {
	if policy != StockPolicyStrict && policy != StockPolicyPermissive {
		return nil, fmt.Errorf("unknown stock policy %q", policy)
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	m := &Mutator{policy: policy, logg: logg, metrics: mt, ids: newID}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}
