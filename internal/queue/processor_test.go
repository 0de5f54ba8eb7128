package queue

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/comptoirlabs/comptoir-backend/internal/remote"
	"github.com/comptoirlabs/comptoir-backend/pkg/db/models"
	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

var testTime = time.UnixMilli(1700000000000)

type fakeRemote struct {
	doc         *state.AppState
	fetchErr    error
	fetchCalls  int
	upsertCalls int
}

func (f *fakeRemote) Fetch(ctx context.Context, restaurantID string) (*state.AppState, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.doc == nil {
		return nil, remote.ErrNotFound
	}
	copied, err := f.doc.Clone()
	if err != nil {
		return nil, err
	}
	return copied, nil
}

func (f *fakeRemote) Upsert(ctx context.Context, restaurantID string, doc *state.AppState) error {
	f.upsertCalls++
	copied, err := doc.Clone()
	if err != nil {
		return err
	}
	f.doc = copied
	return nil
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := NewRepository(db)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	return repo
}

func newTestProcessor(t *testing.T, repo *Repository, svc remote.Service, logs *bytes.Buffer) *Processor {
	t.Helper()
	if logs == nil {
		logs = &bytes.Buffer{}
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: logs})
	proc, err := NewProcessor("rest-1", repo, svc, logg, nil, 3, WithClock(func() time.Time { return testTime }))
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return proc
}

func testOrder(id string, version int) state.Order {
	return state.Order{
		ID:            id,
		Number:        1,
		Items:         []state.OrderItem{},
		Total:         decimal.NewFromInt(10),
		Status:        enums.OrderStatusPending,
		KitchenStatus: enums.KitchenStatusQueued,
		Version:       version,
		Date:          testTime.UnixMilli(),
		UpdatedAt:     testTime.UnixMilli(),
	}
}

func TestReplayCreateOrderAppliesStockDeltas(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	doc := state.New("rest-1")
	doc.LastUpdatedAt = 100
	doc.Ingredients = append(doc.Ingredients, state.Ingredient{
		ID: "ing-flour", Name: "flour", Stock: decimal.NewFromInt(10),
	})
	svc := &fakeRemote{doc: doc}

	_, err := repo.Enqueue(ctx, "rest-1", enums.QueuedActionCreateOrder, CreateOrderAction{
		RestaurantID: "rest-1",
		Order:        testOrder("order-1", 1),
		StockMovements: []state.StockMovement{{
			ID:           "mov-1",
			IngredientID: "ing-flour",
			Quantity:     decimal.NewFromInt(-2),
			Type:         enums.MovementTypeSale,
			Reference:    "order-1",
		}},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	proc := newTestProcessor(t, repo, svc, nil)
	if err := proc.ProcessQueue(ctx); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}

	if svc.doc.FindOrder("order-1") == nil {
		t.Fatalf("order not applied remotely")
	}
	if got := svc.doc.FindIngredient("ing-flour").Stock; !got.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("stock delta not applied, got %s", got)
	}
	if len(svc.doc.StockMovements) != 1 {
		t.Fatalf("expected 1 stock movement remotely, got %d", len(svc.doc.StockMovements))
	}
	if svc.doc.LastUpdatedAt <= 100 {
		t.Fatalf("remote clock not advanced")
	}
	remaining, _ := repo.Count(ctx, "rest-1")
	if remaining != 0 {
		t.Fatalf("expected empty queue, got %d", remaining)
	}
}

func TestReplayCreateOrderIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	doc := state.New("rest-1")
	doc.Ingredients = append(doc.Ingredients, state.Ingredient{
		ID: "ing-flour", Name: "flour", Stock: decimal.NewFromInt(10),
	})
	svc := &fakeRemote{doc: doc}
	proc := newTestProcessor(t, repo, svc, nil)

	payload := CreateOrderAction{
		RestaurantID: "rest-1",
		Order:        testOrder("order-1", 1),
		StockMovements: []state.StockMovement{{
			ID:           "mov-1",
			IngredientID: "ing-flour",
			Quantity:     decimal.NewFromInt(-2),
			Type:         enums.MovementTypeSale,
			Reference:    "order-1",
		}},
	}

	// Double-delivery of the same intent across two reconnection cycles.
	for i := 0; i < 2; i++ {
		if _, err := repo.Enqueue(ctx, "rest-1", enums.QueuedActionCreateOrder, payload); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		if err := proc.ProcessQueue(ctx); err != nil {
			t.Fatalf("ProcessQueue: %v", err)
		}
	}

	orders := 0
	for _, o := range svc.doc.Orders {
		if o.ID == "order-1" {
			orders++
		}
	}
	if orders != 1 {
		t.Fatalf("expected exactly one order-1, got %d", orders)
	}
	if got := svc.doc.FindIngredient("ing-flour").Stock; !got.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("stock deducted more than once, got %s", got)
	}
	remaining, _ := repo.Count(ctx, "rest-1")
	if remaining != 0 {
		t.Fatalf("duplicate action not acknowledged, %d left", remaining)
	}
}

func TestReplayLastCompletedWriteWins(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// Device A's transition already landed: version 2, preparing.
	doc := state.New("rest-1")
	order := testOrder("order-7", 2)
	order.KitchenStatus = enums.KitchenStatusPreparing
	doc.Orders = append(doc.Orders, order)
	svc := &fakeRemote{doc: doc}

	// Device B replays its stale intent on reconnect.
	_, err := repo.Enqueue(ctx, "rest-1", enums.QueuedActionUpdateKitchenStatus, UpdateKitchenStatusAction{
		RestaurantID:  "rest-1",
		OrderID:       "order-7",
		KitchenStatus: enums.KitchenStatusReady,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	proc := newTestProcessor(t, repo, svc, nil)
	if err := proc.ProcessQueue(ctx); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}

	got := svc.doc.FindOrder("order-7")
	if got.KitchenStatus != enums.KitchenStatusReady {
		t.Fatalf("expected ready, got %s", got.KitchenStatus)
	}
	if got.Version != 3 {
		t.Fatalf("expected version 3, got %d", got.Version)
	}
}

func TestReplaySkipsDeletedOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	svc := &fakeRemote{doc: state.New("rest-1")}

	_, err := repo.Enqueue(ctx, "rest-1", enums.QueuedActionUpdateKitchenStatus, UpdateKitchenStatusAction{
		RestaurantID:  "rest-1",
		OrderID:       "order-gone",
		KitchenStatus: enums.KitchenStatusReady,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	logs := &bytes.Buffer{}
	proc := newTestProcessor(t, repo, svc, logs)
	if err := proc.ProcessQueue(ctx); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}

	if svc.upsertCalls != 0 {
		t.Fatalf("no-op processing must not write remotely, got %d upserts", svc.upsertCalls)
	}
	remaining, _ := repo.Count(ctx, "rest-1")
	if remaining != 0 {
		t.Fatalf("skipped action must still leave the queue, %d left", remaining)
	}
	if !strings.Contains(logs.String(), "order gone remotely") {
		t.Fatalf("expected skip warning in logs, got %s", logs.String())
	}
}

func TestBoundedRetryDropsAction(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	svc := &fakeRemote{fetchErr: remote.ErrUnavailable}

	_, err := repo.Enqueue(ctx, "rest-1", enums.QueuedActionUpdateKitchenStatus, UpdateKitchenStatusAction{
		RestaurantID:  "rest-1",
		OrderID:       "order-7",
		KitchenStatus: enums.KitchenStatusReady,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	logs := &bytes.Buffer{}
	proc := newTestProcessor(t, repo, svc, logs)

	for cycle := 1; cycle <= 3; cycle++ {
		if err := proc.ProcessQueue(ctx); err != nil {
			t.Fatalf("ProcessQueue cycle %d: %v", cycle, err)
		}
	}
	remaining, _ := repo.Count(ctx, "rest-1")
	if remaining != 0 {
		t.Fatalf("action must be dropped after 3 attempts, %d left", remaining)
	}
	if !strings.Contains(logs.String(), "retries exhausted") {
		t.Fatalf("expected drop log, got %s", logs.String())
	}
	if !strings.Contains(logs.String(), "order-7") {
		t.Fatalf("drop log must include the payload for manual recovery")
	}

	// A fourth cycle finds nothing to replay.
	before := svc.fetchCalls
	if err := proc.ProcessQueue(ctx); err != nil {
		t.Fatalf("ProcessQueue after drop: %v", err)
	}
	if svc.fetchCalls != before {
		t.Fatalf("dropped action was retried a 4th time")
	}
}

func TestReplayPreservesFIFOOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	doc := state.New("rest-1")
	doc.Orders = append(doc.Orders, testOrder("order-1", 1))
	svc := &fakeRemote{doc: doc}

	for _, status := range []enums.KitchenStatus{
		enums.KitchenStatusPreparing,
		enums.KitchenStatusReady,
		enums.KitchenStatusServed,
	} {
		_, err := repo.Enqueue(ctx, "rest-1", enums.QueuedActionUpdateKitchenStatus, UpdateKitchenStatusAction{
			RestaurantID:  "rest-1",
			OrderID:       "order-1",
			KitchenStatus: status,
		})
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	proc := newTestProcessor(t, repo, svc, nil)
	if err := proc.ProcessQueue(ctx); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}

	got := svc.doc.FindOrder("order-1")
	if got.KitchenStatus != enums.KitchenStatusServed {
		t.Fatalf("last enqueued transition must win, got %s", got.KitchenStatus)
	}
	if got.Version != 4 {
		t.Fatalf("expected three version bumps, got version %d", got.Version)
	}
}

func TestListScopedToOwningRestaurant(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.Enqueue(ctx, "rest-1", enums.QueuedActionUpdateKitchenStatus, UpdateKitchenStatusAction{
		RestaurantID:  "rest-1",
		OrderID:       "order-1",
		KitchenStatus: enums.KitchenStatusReady,
	}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := repo.Enqueue(ctx, "rest-2", enums.QueuedActionUpdateKitchenStatus, UpdateKitchenStatusAction{
		RestaurantID:  "rest-2",
		OrderID:       "order-other",
		KitchenStatus: enums.KitchenStatusReady,
	}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	actions, err := repo.List(ctx, "rest-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(actions) != 1 || actions[0].RestaurantID != "rest-1" {
		t.Fatalf("expected only rest-1 actions, got %+v", actions)
	}
	if n, _ := repo.Count(ctx, "rest-2"); n != 1 {
		t.Fatalf("rest-2 action lost, count %d", n)
	}

	// The processor must never replay another restaurant's intents.
	svc := &fakeRemote{doc: state.New("rest-1")}
	proc := newTestProcessor(t, repo, svc, nil)
	if err := proc.ProcessQueue(ctx); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if n, _ := repo.Count(ctx, "rest-2"); n != 1 {
		t.Fatalf("foreign action was drained, count %d", n)
	}
}

func TestListOrderSurvivesCreatedAtTies(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		action, err := repo.Enqueue(ctx, "rest-1", enums.QueuedActionUpdateKitchenStatus, UpdateKitchenStatusAction{
			RestaurantID:  "rest-1",
			OrderID:       fmt.Sprintf("order-%d", i),
			KitchenStatus: enums.KitchenStatusReady,
		})
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		ids = append(ids, action.ID)
	}
	// Collapse the timestamps: insertion order must still hold.
	err := repo.db.Model(&models.QueuedAction{}).
		Where("restaurant_id = ?", "rest-1").
		Update("created_at", testTime).Error
	if err != nil {
		t.Fatalf("collapsing timestamps: %v", err)
	}

	actions, err := repo.List(ctx, "rest-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(actions))
	}
	for i, action := range actions {
		if action.ID != ids[i] {
			t.Fatalf("position %d: expected %s, got %s", i, ids[i], action.ID)
		}
	}
}

func TestMalformedPayloadDroppedImmediately(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	svc := &fakeRemote{doc: state.New("rest-1")}

	action, err := repo.Enqueue(ctx, "rest-1", enums.QueuedActionUpdateOrder, UpdateOrderAction{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	err = repo.db.Model(action).Update("payload", []byte(`{not json`)).Error
	if err != nil {
		t.Fatalf("corrupting payload: %v", err)
	}

	proc := newTestProcessor(t, repo, svc, nil)
	if err := proc.ProcessQueue(ctx); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	remaining, _ := repo.Count(ctx, "rest-1")
	if remaining != 0 {
		t.Fatalf("undecodable action must be dropped, %d left", remaining)
	}
}
