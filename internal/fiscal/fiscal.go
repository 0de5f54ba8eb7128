// Package fiscal hands completed orders to the external legal archive.
// Archival failure is never fatal to payment completion; the caller
// completes the order without an invoice number and logs the miss.
package fiscal

import (
	"context"

	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

// Archiver submits one finalized transaction and returns the canonical
// invoice number assigned by the archive.
type Archiver interface {
	Archive(ctx context.Context, order state.Order) (string, error)
}

// Noop satisfies Archiver for deployments without a fiscal endpoint.
// Orders complete with an empty invoice number.
type Noop struct{}

func (Noop) Archive(context.Context, state.Order) (string, error) {
	return "", nil
}
