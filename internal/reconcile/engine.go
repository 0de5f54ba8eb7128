package reconcile

import (
	"context"
	"fmt"

	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/metrics"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

// Result describes what the engine did with a remote snapshot.
type Result struct {
	State           *state.AppState
	Applied         bool
	OrdersAdopted   int
	OrdersInserted  int
	OrdersKeptLocal int
}

// Engine merges remote state snapshots into the device's local state.
// Merging is entity-granular for orders only; every other collection is
// adopted wholesale once the document-level clock check passes.
type Engine struct {
	logg    *logger.Logger
	metrics *metrics.SyncMetrics
}

// NewEngine builds a reconciliation engine with the required dependencies.
func NewEngine(logg *logger.Logger, m *metrics.SyncMetrics) (*Engine, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{logg: logg, metrics: m}, nil
}

// MergeRaw decodes and validates a raw remote payload before merging.
// A malformed payload never touches local state: the engine logs the
// anomaly and returns local unchanged.
func (e *Engine) MergeRaw(ctx context.Context, local *state.AppState, remoteRaw []byte) Result {
	remote, err := state.Decode(remoteRaw)
	if err != nil {
		e.metrics.IncMalformedRemote()
		logCtx := e.logg.WithFields(ctx, map[string]any{"error": err.Error()})
		e.logg.Warn(logCtx, "discarding malformed remote snapshot")
		return Result{State: local, Applied: false}
	}
	return e.Merge(ctx, local, remote)
}

// Merge reconciles a validated remote snapshot into local state.
func (e *Engine) Merge(ctx context.Context, local *state.AppState, remote *state.AppState) Result {
	if local == nil {
		e.metrics.IncMergeApplied()
		return Result{State: remote, Applied: true, OrdersAdopted: len(remote.Orders)}
	}

	// Fast path: a remote clock at or behind ours is an echo of our own
	// write or an older snapshot. Local stays untouched.
	if remote.LastUpdatedAt <= local.LastUpdatedAt {
		e.metrics.IncMergeDiscarded()
		return Result{State: local, Applied: false}
	}

	merged, err := remote.Clone()
	if err != nil {
		e.metrics.IncMalformedRemote()
		e.logg.Error(ctx, "cloning remote snapshot", err)
		return Result{State: local, Applied: false}
	}
	res := Result{Applied: true}

	localOrders := make(map[string]*state.Order, len(local.Orders))
	for i := range local.Orders {
		localOrders[local.Orders[i].ID] = &local.Orders[i]
	}

	mergedOrders := make([]state.Order, 0, len(remote.Orders)+len(local.Orders))
	seen := make(map[string]struct{}, len(remote.Orders))
	for _, remoteOrder := range remote.Orders {
		seen[remoteOrder.ID] = struct{}{}
		localOrder, ok := localOrders[remoteOrder.ID]
		if !ok {
			mergedOrders = append(mergedOrders, remoteOrder)
			res.OrdersInserted++
			continue
		}
		// Ties prefer local: the device is actively viewing it.
		if remoteOrder.Version > localOrder.Version {
			mergedOrders = append(mergedOrders, remoteOrder)
			res.OrdersAdopted++
			continue
		}
		mergedOrders = append(mergedOrders, *localOrder)
		res.OrdersKeptLocal++
		if remoteOrder.Version < localOrder.Version {
			logCtx := e.logg.WithOrderID(ctx, localOrder.ID)
			logCtx = e.logg.WithFields(logCtx, map[string]any{
				"local_version":  localOrder.Version,
				"remote_version": remoteOrder.Version,
			})
			e.logg.Info(logCtx, "keeping newer local order over remote")
		}
	}

	// Orders created locally and not yet pushed survive the merge.
	for _, localOrder := range local.Orders {
		if _, ok := seen[localOrder.ID]; ok {
			continue
		}
		mergedOrders = append(mergedOrders, localOrder)
		res.OrdersKeptLocal++
	}

	merged.Orders = mergedOrders
	res.State = merged

	e.metrics.IncMergeApplied()
	e.metrics.AddOrdersKeptLocal(res.OrdersKeptLocal)

	logCtx := e.logg.WithRestaurantID(ctx, merged.RestaurantID)
	logCtx = e.logg.WithFields(logCtx, map[string]any{
		"remote_clock":      remote.LastUpdatedAt,
		"local_clock":       local.LastUpdatedAt,
		"orders_adopted":    res.OrdersAdopted,
		"orders_inserted":   res.OrdersInserted,
		"orders_kept_local": res.OrdersKeptLocal,
	})
	e.logg.Info(logCtx, "remote snapshot merged")

	return res
}
