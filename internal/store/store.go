// Package store is the single mutation entry point on a device. Every
// business operation applies optimistically to the in-memory document,
// persists durably, then syncs remotely or queues the intent for replay.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comptoirlabs/comptoir-backend/internal/fiscal"
	"github.com/comptoirlabs/comptoir-backend/internal/pos"
	"github.com/comptoirlabs/comptoir-backend/internal/queue"
	"github.com/comptoirlabs/comptoir-backend/internal/reconcile"
	"github.com/comptoirlabs/comptoir-backend/internal/remote"
	"github.com/comptoirlabs/comptoir-backend/internal/storage"
	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

// Config wires the container's collaborators.
type Config struct {
	RestaurantID string
	QueueEnabled bool

	Mutator   *pos.Mutator
	Storage   storage.Store
	Remote    remote.Service
	Checker   remote.Checker
	Queue     *queue.Repository
	Processor *queue.Processor
	Engine    *reconcile.Engine
	Archiver  fiscal.Archiver
	Logger    *logger.Logger
}

// Store serializes every state change through one mutex, mirroring the
// one-writer-per-device model the sync protocol assumes.
type Store struct {
	cfg Config
	now func() time.Time

	mtx sync.Mutex
	doc *state.AppState
}

// Option tweaks construction, mainly for tests.
type Option func(*Store)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(cfg Config, opts ...Option) (*Store, error) {
	if cfg.RestaurantID == "" {
		return nil, fmt.Errorf("restaurant id required")
	}
	if cfg.Mutator == nil {
		return nil, fmt.Errorf("mutator required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("durable storage required")
	}
	if cfg.Remote == nil {
		return nil, fmt.Errorf("remote service required")
	}
	if cfg.Checker == nil {
		return nil, fmt.Errorf("connectivity checker required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("reconcile engine required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.QueueEnabled && (cfg.Queue == nil || cfg.Processor == nil) {
		return nil, fmt.Errorf("offline queue enabled but not wired")
	}
	if cfg.Archiver == nil {
		cfg.Archiver = fiscal.Noop{}
	}
	s := &Store{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load boots the document: durable snapshot first, then the remote
// service, then a fresh empty document that is persisted immediately.
func (s *Store) Load(ctx context.Context) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	raw, err := s.cfg.Storage.Get(ctx, s.cfg.RestaurantID)
	if err == nil {
		doc, decErr := state.Decode(raw)
		if decErr == nil {
			s.doc = doc
			s.cfg.Logger.Info(ctx, "state loaded from durable snapshot")
			return nil
		}
		s.cfg.Logger.Error(ctx, "durable snapshot unreadable, falling back to remote", decErr)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	doc, err := s.cfg.Remote.Fetch(ctx, s.cfg.RestaurantID)
	if errors.Is(err, remote.ErrNotFound) {
		doc = state.New(s.cfg.RestaurantID)
	} else if err != nil {
		return fmt.Errorf("no durable snapshot and remote unreachable: %w", err)
	}

	if err := s.persistLocked(ctx, doc); err != nil {
		return err
	}
	s.doc = doc
	s.cfg.Logger.Info(ctx, "state loaded from remote service")
	return nil
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() (*state.AppState, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.doc == nil {
		return nil, fmt.Errorf("state not loaded")
	}
	return s.doc.Clone()
}

// PendingActions reports the offline queue depth; zero when disabled.
func (s *Store) PendingActions(ctx context.Context) (int64, error) {
	if !s.cfg.QueueEnabled {
		return 0, nil
	}
	return s.cfg.Queue.Count(ctx, s.cfg.RestaurantID)
}

// mutate applies op to a working copy, persists it durably and adopts it.
// The working copy is discarded on any error, so a failed operation leaves
// no partial effects.
func (s *Store) mutate(ctx context.Context, op func(*state.AppState) error) (*state.AppState, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("state not loaded")
	}
	work, err := s.doc.Clone()
	if err != nil {
		return nil, err
	}
	if err := op(work); err != nil {
		return nil, err
	}
	if err := s.persistLocked(ctx, work); err != nil {
		return nil, err
	}
	s.doc = work
	return work, nil
}

func (s *Store) persistLocked(ctx context.Context, doc *state.AppState) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return s.cfg.Storage.Set(ctx, s.cfg.RestaurantID, raw, doc.LastUpdatedAt)
}

// sync pushes the whole document remotely, or records the typed intent
// when offline. enqueue may be nil for operations with no queued form;
// those rely on the next resync to propagate.
func (s *Store) sync(ctx context.Context, doc *state.AppState, enqueue func(context.Context) error) error {
	if s.cfg.Checker.Online(ctx) {
		err := s.cfg.Remote.Upsert(ctx, s.cfg.RestaurantID, doc)
		if err == nil {
			return nil
		}
		s.cfg.Logger.Warn(s.cfg.Logger.WithField(ctx, "error", err.Error()), "remote upsert failed, taking offline path")
	}

	if enqueue != nil && s.cfg.QueueEnabled {
		if err := enqueue(ctx); err != nil {
			return err
		}
		s.cfg.Logger.Info(ctx, "mutation queued for replay")
		return nil
	}
	s.cfg.Logger.Warn(ctx, "remote unreachable, mutation will sync on next reconnection")
	return nil
}

// OnRemoteChange feeds a pushed snapshot through the reconciliation
// engine and persists the merge result when anything was applied.
func (s *Store) OnRemoteChange(ctx context.Context, raw []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.doc == nil {
		return fmt.Errorf("state not loaded")
	}

	result := s.cfg.Engine.MergeRaw(ctx, s.doc, raw)
	if !result.Applied {
		return nil
	}
	if err := s.persistLocked(ctx, result.State); err != nil {
		return err
	}
	s.doc = result.State
	return nil
}

// Resync runs on reconnection: drain the offline queue, pull the remote
// document through the merge, then push the reconciled result back.
func (s *Store) Resync(ctx context.Context) error {
	if s.cfg.QueueEnabled {
		if err := s.cfg.Processor.ProcessQueue(ctx); err != nil {
			return err
		}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.doc == nil {
		return fmt.Errorf("state not loaded")
	}

	remoteDoc, err := s.cfg.Remote.Fetch(ctx, s.cfg.RestaurantID)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		return err
	}

	merged := s.doc
	if remoteDoc != nil {
		result := s.cfg.Engine.Merge(ctx, s.doc, remoteDoc)
		merged = result.State
	}

	if err := s.persistLocked(ctx, merged); err != nil {
		return err
	}
	s.doc = merged
	return s.cfg.Remote.Upsert(ctx, s.cfg.RestaurantID, merged)
}

// CreateOrder runs the sale mutation and syncs it, queuing the computed
// order plus its stock movements when offline.
func (s *Store) CreateOrder(ctx context.Context, in pos.CreateOrderInput) (*pos.CreateOrderResult, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if in.Now.IsZero() {
		in.Now = s.now()
	}
	var result *pos.CreateOrderResult
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		result, opErr = s.cfg.Mutator.CreateOrder(ctx, work, in)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	err = s.sync(ctx, doc, func(ctx context.Context) error {
		_, qErr := s.cfg.Queue.Enqueue(ctx, s.cfg.RestaurantID, enums.QueuedActionCreateOrder, queue.CreateOrderAction{
			RestaurantID:   s.cfg.RestaurantID,
			Order:          result.Order,
			StockMovements: movementsFor(doc, result.Order.ID),
		})
		return qErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateKitchenStatus transitions food-prep state and syncs it.
func (s *Store) UpdateKitchenStatus(ctx context.Context, orderID string, status enums.KitchenStatus) (*state.Order, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var updated *state.Order
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		updated, opErr = s.cfg.Mutator.UpdateKitchenStatus(ctx, work, orderID, status, s.now())
		return opErr
	})
	if err != nil {
		return nil, err
	}

	err = s.sync(ctx, doc, func(ctx context.Context) error {
		_, qErr := s.cfg.Queue.Enqueue(ctx, s.cfg.RestaurantID, enums.QueuedActionUpdateKitchenStatus, queue.UpdateKitchenStatusAction{
			RestaurantID:  s.cfg.RestaurantID,
			OrderID:       orderID,
			KitchenStatus: status,
		})
		return qErr
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateOrderItems replaces a pending order's lines and syncs it.
func (s *Store) UpdateOrderItems(ctx context.Context, orderID string, items []pos.OrderItemInput) (*state.Order, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var updated *state.Order
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		updated, opErr = s.cfg.Mutator.UpdateOrderItems(ctx, work, orderID, items, s.now())
		return opErr
	})
	if err != nil {
		return nil, err
	}

	err = s.sync(ctx, doc, func(ctx context.Context) error {
		_, qErr := s.cfg.Queue.Enqueue(ctx, s.cfg.RestaurantID, enums.QueuedActionUpdateOrder, queue.UpdateOrderAction{
			RestaurantID: s.cfg.RestaurantID,
			Order:        *updated,
		})
		return qErr
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PayOrder archives the transaction, then completes the order. Archive
// failure is logged and the order completes without an invoice number;
// a payment is never blocked on the archive being reachable.
func (s *Store) PayOrder(ctx context.Context, orderID string, method enums.PaymentMethod, paidByUserID string) (*state.Order, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.doc == nil {
		return nil, fmt.Errorf("state not loaded")
	}

	current := s.doc.FindOrder(orderID)
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	// The archive is append-only: validate the transition before submitting,
	// or a doomed payment still chains the order into the legal record.
	if current.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method "+method.String())
	}

	invoiceNumber, err := s.cfg.Archiver.Archive(ctx, *current)
	if err != nil {
		logCtx := s.cfg.Logger.WithOrderID(ctx, orderID)
		s.cfg.Logger.Warn(s.cfg.Logger.WithField(logCtx, "error", err.Error()), "fiscal archive unavailable, completing without invoice")
		invoiceNumber = ""
	}

	var completed *state.Order
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		completed, opErr = s.cfg.Mutator.CompleteOrder(ctx, work, orderID, method, paidByUserID, invoiceNumber, s.now())
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if err := s.sync(ctx, doc, nil); err != nil {
		return nil, err
	}
	return completed, nil
}

// CancelOrder voids a pending order and syncs it.
func (s *Store) CancelOrder(ctx context.Context, orderID string) (*state.Order, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var cancelled *state.Order
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		cancelled, opErr = s.cfg.Mutator.CancelOrder(ctx, work, orderID, s.now())
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if err := s.sync(ctx, doc, nil); err != nil {
		return nil, err
	}
	return cancelled, nil
}

// CreateSupplierOrder records a pending purchase and syncs it.
func (s *Store) CreateSupplierOrder(ctx context.Context, partnerID string, items []pos.SupplierOrderItemInput) (*state.SupplierOrder, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var created *state.SupplierOrder
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		created, opErr = s.cfg.Mutator.CreateSupplierOrder(ctx, work, partnerID, items, s.now())
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if err := s.sync(ctx, doc, nil); err != nil {
		return nil, err
	}
	return created, nil
}

// ReceiveSupplierOrder books a delivery into stock and syncs it.
func (s *Store) ReceiveSupplierOrder(ctx context.Context, orderID string) (*state.SupplierOrder, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var received *state.SupplierOrder
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		received, opErr = s.cfg.Mutator.ReceiveSupplierOrder(ctx, work, orderID, s.now())
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if err := s.sync(ctx, doc, nil); err != nil {
		return nil, err
	}
	return received, nil
}

// AdjustIngredientStock corrects a counted stock level and syncs it.
func (s *Store) AdjustIngredientStock(ctx context.Context, ingredientID string, newStock decimal.Decimal, reason string) (*state.Ingredient, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var adjusted *state.Ingredient
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		adjusted, opErr = s.cfg.Mutator.AdjustIngredientStock(ctx, work, ingredientID, newStock, reason, s.now())
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if err := s.sync(ctx, doc, nil); err != nil {
		return nil, err
	}
	return adjusted, nil
}

// DeclareCash records an opening or closing float and syncs it.
func (s *Store) DeclareCash(ctx context.Context, userID string, kind enums.CashDeclarationType, amount decimal.Decimal) (*state.CashDeclaration, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var declared *state.CashDeclaration
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		declared, opErr = s.cfg.Mutator.DeclareCash(ctx, work, userID, kind, amount, s.now())
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if err := s.sync(ctx, doc, nil); err != nil {
		return nil, err
	}
	return declared, nil
}

// AddExpense records an operating expense and syncs it.
func (s *Store) AddExpense(ctx context.Context, label, category string, amount decimal.Decimal) (*state.Expense, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var added *state.Expense
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		added, opErr = s.cfg.Mutator.AddExpense(ctx, work, label, category, amount, s.now())
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if err := s.sync(ctx, doc, nil); err != nil {
		return nil, err
	}
	return added, nil
}

// RequestPinReset records a PIN reset request and syncs it.
func (s *Store) RequestPinReset(ctx context.Context, userID string) (*state.PinResetRequest, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var request *state.PinResetRequest
	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		var opErr error
		request, opErr = s.cfg.Mutator.RequestPinReset(ctx, work, userID, s.now())
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if err := s.sync(ctx, doc, nil); err != nil {
		return nil, err
	}
	return request, nil
}

// ResolvePinReset applies a manager-approved PIN change and syncs it.
func (s *Store) ResolvePinReset(ctx context.Context, requestID, newPIN string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	doc, err := s.mutate(ctx, func(work *state.AppState) error {
		return s.cfg.Mutator.ResolvePinReset(ctx, work, requestID, newPIN, s.now())
	})
	if err != nil {
		return err
	}
	return s.sync(ctx, doc, nil)
}

// movementsFor extracts the stock movements a sale just appended.
func movementsFor(doc *state.AppState, orderID string) []state.StockMovement {
	var out []state.StockMovement
	for _, movement := range doc.StockMovements {
		if movement.Reference == orderID && movement.Type == enums.MovementTypeSale {
			out = append(out, movement)
		}
	}
	return out
}
