// Package remote gives devices their view of the remote state service:
// fetch/upsert over HTTP, push notifications over Pub/Sub and a polled
// connectivity signal that drives the offline queue.
package remote

import (
	"context"
	"errors"

	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

// ErrNotFound reports that no document exists yet for the restaurant.
var ErrNotFound = errors.New("remote state not found")

// ErrUnavailable reports that the remote service could not be reached;
// callers fall back to the offline queue.
var ErrUnavailable = errors.New("remote state service unavailable")

// Service is the remote document contract consumed by the state container
// and the queue processor.
type Service interface {
	Fetch(ctx context.Context, restaurantID string) (*state.AppState, error)
	Upsert(ctx context.Context, restaurantID string, doc *state.AppState) error
}

// Checker answers "is the network reachable right now"; polled at mutation
// time to pick between the online and queued paths.
type Checker interface {
	Online(ctx context.Context) bool
}
