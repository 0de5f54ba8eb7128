package remotestate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/comptoirlabs/comptoir-backend/pkg/config"
	dbpkg "github.com/comptoirlabs/comptoir-backend/pkg/db"
	"github.com/comptoirlabs/comptoir-backend/pkg/db/models"
	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/outbox"
	"github.com/comptoirlabs/comptoir-backend/pkg/redis"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

type fakeCache struct {
	mtx     sync.Mutex
	entries map[string]string
	gets    int
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.gets++
	value, ok := f.entries[key]
	if !ok {
		return "", redis.Nil
	}
	f.hits++
	return value, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	switch v := value.(type) {
	case []byte:
		f.entries[key] = string(v)
	case string:
		f.entries[key] = v
	default:
		return fmt.Errorf("unexpected cache value type %T", value)
	}
	return nil
}

func (f *fakeCache) SnapshotKey(restaurantID string) string {
	return "cmt:snapshot:" + restaurantID
}

func newTestService(t *testing.T) (*Service, *dbpkg.Client, *fakeCache) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	client, err := dbpkg.New(context.Background(), config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    dsn,
	}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.DB().AutoMigrate(&models.RestaurantState{}); err != nil {
		t.Fatalf("migrate restaurant state: %v", err)
	}
	err = client.DB().Exec(`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`).Error
	if err != nil {
		t.Fatalf("create outbox table: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &bytes.Buffer{}})
	events := outbox.NewService(outbox.NewRepository(client.DB()), logg)
	cache := newFakeCache()

	svc, err := NewService(client, NewRepository(client.DB()), events, cache, time.Minute, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, client, cache
}

func encodedState(t *testing.T, doc *state.AppState) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	return raw
}

func device() *outbox.DeviceRef {
	return &outbox.DeviceRef{RestaurantID: "rest-1", DeviceID: "device-1", Role: "primary"}
}

func pendingEvents(t *testing.T, client *dbpkg.Client) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	err := client.DB().Order("created_at ASC, id ASC").Find(&rows).Error
	if err != nil {
		t.Fatalf("listing outbox events: %v", err)
	}
	return rows
}

func TestUpsertStoresDocumentAndEmitsSnapshotEvent(t *testing.T) {
	svc, client, _ := newTestService(t)
	ctx := context.Background()

	doc := state.New("rest-1")
	doc.LastUpdatedAt = 100

	stored, err := svc.Upsert(ctx, device(), "rest-1", encodedState(t, doc))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if stored.LastUpdatedAt != 100 {
		t.Fatalf("stored clock mismatch: %d", stored.LastUpdatedAt)
	}

	events := pendingEvents(t, client)
	if len(events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(events))
	}
	if events[0].EventType != enums.EventSnapshotUpdated {
		t.Fatalf("unexpected event type %s", events[0].EventType)
	}
	if events[0].AggregateID != "rest-1" {
		t.Fatalf("unexpected aggregate id %s", events[0].AggregateID)
	}
}

func TestUpsertCollapsesSnapshotBursts(t *testing.T) {
	svc, client, _ := newTestService(t)
	ctx := context.Background()

	for clock := int64(100); clock <= 300; clock += 100 {
		doc := state.New("rest-1")
		doc.LastUpdatedAt = clock
		if _, err := svc.Upsert(ctx, device(), "rest-1", encodedState(t, doc)); err != nil {
			t.Fatalf("Upsert clock %d: %v", clock, err)
		}
	}

	events := pendingEvents(t, client)
	if len(events) != 1 {
		t.Fatalf("burst must collapse to one pending snapshot event, got %d", len(events))
	}

	// The stored document itself always reflects the latest write.
	cacheless, err := svc.repo.FindByID(ctx, "rest-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if cacheless.LastUpdatedAt != 300 {
		t.Fatalf("blind overwrite must keep the last write, got %d", cacheless.LastUpdatedAt)
	}
}

func TestUpsertEmitsOrderCompletedOnce(t *testing.T) {
	svc, client, _ := newTestService(t)
	ctx := context.Background()

	base := state.New("rest-1")
	base.LastUpdatedAt = 100
	base.Orders = append(base.Orders, state.Order{
		ID:            "order-1",
		Number:        1,
		Items:         []state.OrderItem{},
		Total:         decimal.NewFromInt(20),
		Status:        enums.OrderStatusPending,
		KitchenStatus: enums.KitchenStatusQueued,
		Version:       1,
	})
	if _, err := svc.Upsert(ctx, device(), "rest-1", encodedState(t, base)); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	paid, _ := base.Clone()
	paid.LastUpdatedAt = 200
	paid.Orders[0].Status = enums.OrderStatusCompleted
	paid.Orders[0].PaymentMethod = enums.PaymentMethodCard
	paid.Orders[0].Version = 2
	if _, err := svc.Upsert(ctx, device(), "rest-1", encodedState(t, paid)); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	// Re-pushing the already-completed order must not emit again.
	paid.LastUpdatedAt = 300
	if _, err := svc.Upsert(ctx, device(), "rest-1", encodedState(t, paid)); err != nil {
		t.Fatalf("third Upsert: %v", err)
	}

	completed := 0
	for _, event := range pendingEvents(t, client) {
		if event.EventType == enums.EventOrderCompleted {
			completed++
			if event.AggregateID != "order-1" {
				t.Fatalf("unexpected aggregate id %s", event.AggregateID)
			}
		}
	}
	if completed != 1 {
		t.Fatalf("expected exactly one order.completed event, got %d", completed)
	}
}

func TestUpsertRejectsMalformedDocument(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Upsert(context.Background(), device(), "rest-1", json.RawMessage(`{"lastUpdatedAt":1}`))
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpsertRejectsRestaurantMismatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := state.New("rest-other")

	_, err := svc.Upsert(context.Background(), device(), "rest-1", encodedState(t, doc))
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchUsesCacheAside(t *testing.T) {
	svc, _, cache := newTestService(t)
	ctx := context.Background()

	doc := state.New("rest-1")
	doc.LastUpdatedAt = 100
	if _, err := svc.Upsert(ctx, device(), "rest-1", encodedState(t, doc)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	first, err := svc.Fetch(ctx, "rest-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if first.LastUpdatedAt != 100 {
		t.Fatalf("unexpected clock %d", first.LastUpdatedAt)
	}
	if cache.hits == 0 {
		t.Fatalf("upsert must warm the cache")
	}
}

func TestFetchMissingDocument(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Fetch(context.Background(), "rest-none")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
