package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/comptoirlabs/comptoir-backend/internal/remote"
	"github.com/comptoirlabs/comptoir-backend/pkg/db/models"
	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/metrics"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

// errPermanent marks a failure no retry can fix, such as a payload that
// does not decode. The action is dropped immediately.
var errPermanent = errors.New("permanent replay failure")

// Processor replays queued actions against the remote document in FIFO
// order. Each action is a whole-document read-modify-write; conflicts
// resolve as last completed write wins, with the reconciliation engine
// cleaning up per-order divergence on the next snapshot read.
type Processor struct {
	restaurantID string
	repo         *Repository
	remote       remote.Service
	logg         *logger.Logger
	metrics      *metrics.SyncMetrics
	maxAttempts  int
	now          func() time.Time
}

// Option tweaks processor construction, mainly for tests.
type Option func(*Processor)

// WithClock overrides the wall clock used to advance the logical clock.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(restaurantID string, repo *Repository, svc remote.Service, logg *logger.Logger, m *metrics.SyncMetrics, maxAttempts int, opts ...Option) (*Processor, error) {
	if restaurantID == "" {
		return nil, fmt.Errorf("restaurant id required")
	}
	if repo == nil {
		return nil, fmt.Errorf("queue repository required")
	}
	if svc == nil {
		return nil, fmt.Errorf("remote service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	p := &Processor{
		restaurantID: restaurantID,
		repo:         repo,
		remote:       svc,
		logg:         logg,
		metrics:      m,
		maxAttempts:  maxAttempts,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProcessQueue drains the queue once. Actions that fail transiently stay
// queued with an incremented retry counter until the ceiling, after which
// they are dropped with their full payload logged for manual recovery.
func (p *Processor) ProcessQueue(ctx context.Context) error {
	actions, err := p.repo.List(ctx, p.restaurantID)
	if err != nil {
		return err
	}
	for _, action := range actions {
		logCtx := p.logg.WithActionID(ctx, action.ID)

		err := p.replay(logCtx, action)
		if err == nil {
			if err := p.repo.Delete(ctx, action.ID); err != nil {
				return err
			}
			p.metrics.IncQueueProcessed()
			p.logg.Info(p.logg.WithField(logCtx, "action_type", action.ActionType.String()), "queued action replayed")
			continue
		}

		attempts := action.Attempts + 1
		if errors.Is(err, errPermanent) || attempts >= p.maxAttempts {
			dropCtx := p.logg.WithFields(logCtx, map[string]any{
				"action_type": action.ActionType.String(),
				"attempts":    attempts,
				"payload":     string(action.Payload),
			})
			p.logg.Error(dropCtx, "dropping queued action after retries exhausted", err)
			if err := p.repo.Delete(ctx, action.ID); err != nil {
				return err
			}
			p.metrics.IncQueueDropped()
			continue
		}
		p.logg.Warn(p.logg.WithField(logCtx, "attempts", attempts), "queued action replay failed, will retry")
		if err := p.repo.RecordFailure(ctx, action.ID, attempts, err); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) replay(ctx context.Context, action models.QueuedAction) error {
	doc, err := p.remote.Fetch(ctx, p.restaurantID)
	if errors.Is(err, remote.ErrNotFound) {
		doc = state.New(p.restaurantID)
	} else if err != nil {
		return err
	}

	changed, err := p.apply(ctx, doc, action)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	doc.Touch(p.now())
	return p.remote.Upsert(ctx, p.restaurantID, doc)
}

// apply mutates doc in place and reports whether a remote write is needed.
// A false return with a nil error is successful no-op processing.
func (p *Processor) apply(ctx context.Context, doc *state.AppState, action models.QueuedAction) (bool, error) {
	switch action.ActionType {
	case enums.QueuedActionCreateOrder:
		var payload CreateOrderAction
		if err := json.Unmarshal(action.Payload, &payload); err != nil {
			return false, fmt.Errorf("%w: decoding create order payload: %v", errPermanent, err)
		}
		if doc.FindOrder(payload.Order.ID) != nil {
			p.logg.Info(p.logg.WithOrderID(ctx, payload.Order.ID), "order already present remotely, skipping replay")
			return false, nil
		}
		doc.Orders = append(doc.Orders, payload.Order)
		for _, movement := range payload.StockMovements {
			doc.StockMovements = append(doc.StockMovements, movement)
			ingredient := doc.FindIngredient(movement.IngredientID)
			if ingredient == nil {
				p.logg.Warn(p.logg.WithField(ctx, "ingredient_id", movement.IngredientID), "ingredient missing remotely, skipping stock delta")
				continue
			}
			ingredient.Stock = ingredient.Stock.Add(movement.Quantity)
		}
		return true, nil

	case enums.QueuedActionUpdateKitchenStatus:
		var payload UpdateKitchenStatusAction
		if err := json.Unmarshal(action.Payload, &payload); err != nil {
			return false, fmt.Errorf("%w: decoding kitchen status payload: %v", errPermanent, err)
		}
		order := doc.FindOrder(payload.OrderID)
		if order == nil {
			p.logg.Warn(p.logg.WithOrderID(ctx, payload.OrderID), "order gone remotely, skipping queued kitchen update")
			return false, nil
		}
		order.KitchenStatus = payload.KitchenStatus
		order.Version++
		order.UpdatedAt = p.now().UnixMilli()
		return true, nil

	case enums.QueuedActionUpdateOrder:
		var payload UpdateOrderAction
		if err := json.Unmarshal(action.Payload, &payload); err != nil {
			return false, fmt.Errorf("%w: decoding order update payload: %v", errPermanent, err)
		}
		order := doc.FindOrder(payload.Order.ID)
		if order == nil {
			p.logg.Warn(p.logg.WithOrderID(ctx, payload.Order.ID), "order gone remotely, skipping queued order update")
			return false, nil
		}
		order.Items = payload.Order.Items
		order.Total = payload.Order.Total
		order.Version++
		order.UpdatedAt = p.now().UnixMilli()
		return true, nil

	default:
		return false, fmt.Errorf("%w: unknown action type %q", errPermanent, action.ActionType)
	}
}
