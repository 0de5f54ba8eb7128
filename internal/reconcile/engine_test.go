package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

func newTestEngine(t *testing.T) (*Engine, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: buf})
	engine, err := NewEngine(logg, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, buf
}

func testState(clock int64, orders ...state.Order) *state.AppState {
	s := state.New("rest-1")
	s.LastUpdatedAt = clock
	s.Orders = append(s.Orders, orders...)
	return s
}

func order(id string, version int, kitchenStatus enums.KitchenStatus) state.Order {
	return state.Order{
		ID:            id,
		Number:        1,
		Status:        enums.OrderStatusPending,
		KitchenStatus: kitchenStatus,
		Version:       version,
	}
}

func TestMergeDiscardsStaleRemote(t *testing.T) {
	engine, _ := newTestEngine(t)
	local := testState(100, order("ord-1", 3, enums.KitchenStatusPreparing))
	remote := testState(100, order("ord-1", 9, enums.KitchenStatusServed))

	localBytes, err := json.Marshal(local)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	res := engine.Merge(context.Background(), local, remote)
	if res.Applied {
		t.Fatalf("expected stale remote to be discarded")
	}
	if res.State != local {
		t.Fatalf("expected local state returned unchanged")
	}

	afterBytes, err := json.Marshal(res.State)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(localBytes, afterBytes) {
		t.Fatalf("local state must remain byte-identical after discarded merge")
	}
}

func TestMergeKeepsNewerLocalOrder(t *testing.T) {
	engine, _ := newTestEngine(t)
	local := testState(100, order("ord-1", 3, enums.KitchenStatusReady))
	remote := testState(200, order("ord-1", 2, enums.KitchenStatusPreparing))

	res := engine.Merge(context.Background(), local, remote)
	if !res.Applied {
		t.Fatalf("expected merge to apply")
	}
	if res.OrdersKeptLocal != 1 {
		t.Fatalf("expected 1 order kept local, got %d", res.OrdersKeptLocal)
	}
	got := res.State.FindOrder("ord-1")
	if got == nil || got.Version != 3 || got.KitchenStatus != enums.KitchenStatusReady {
		t.Fatalf("expected local version-3 record kept, got %+v", got)
	}
	if res.State.LastUpdatedAt != 200 {
		t.Fatalf("merged state must carry remote clock, got %d", res.State.LastUpdatedAt)
	}
}

func TestMergeAdoptsNewerRemoteOrder(t *testing.T) {
	engine, _ := newTestEngine(t)
	local := testState(100, order("ord-1", 1, enums.KitchenStatusQueued))
	remote := testState(200, order("ord-1", 2, enums.KitchenStatusPreparing))

	res := engine.Merge(context.Background(), local, remote)
	if !res.Applied || res.OrdersAdopted != 1 {
		t.Fatalf("expected remote order adopted, got %+v", res)
	}
	got := res.State.FindOrder("ord-1")
	if got == nil || got.Version != 2 || got.KitchenStatus != enums.KitchenStatusPreparing {
		t.Fatalf("unexpected merged order %+v", got)
	}
}

func TestMergeVersionTiePrefersLocal(t *testing.T) {
	engine, _ := newTestEngine(t)
	local := testState(100, order("ord-1", 2, enums.KitchenStatusReady))
	remote := testState(200, order("ord-1", 2, enums.KitchenStatusPreparing))

	res := engine.Merge(context.Background(), local, remote)
	got := res.State.FindOrder("ord-1")
	if got == nil || got.KitchenStatus != enums.KitchenStatusReady {
		t.Fatalf("tie must prefer local record, got %+v", got)
	}
}

func TestMergeInsertsRemoteOnlyOrder(t *testing.T) {
	engine, _ := newTestEngine(t)
	local := testState(100)
	remote := testState(200, order("ord-2", 1, enums.KitchenStatusQueued))

	res := engine.Merge(context.Background(), local, remote)
	if res.OrdersInserted != 1 {
		t.Fatalf("expected 1 inserted order, got %d", res.OrdersInserted)
	}
	if res.State.FindOrder("ord-2") == nil {
		t.Fatalf("remote-only order missing after merge")
	}
}

func TestMergeRetainsLocalOnlyOrder(t *testing.T) {
	engine, _ := newTestEngine(t)
	local := testState(100, order("ord-local", 1, enums.KitchenStatusQueued))
	remote := testState(200)

	res := engine.Merge(context.Background(), local, remote)
	if res.State.FindOrder("ord-local") == nil {
		t.Fatalf("locally created order lost during merge")
	}
	if res.OrdersKeptLocal != 1 {
		t.Fatalf("expected local-only order counted as kept, got %d", res.OrdersKeptLocal)
	}
}

func TestMergeAdoptsOtherCollectionsWholesale(t *testing.T) {
	engine, _ := newTestEngine(t)
	local := testState(100)
	local.Products = []state.Product{{ID: "prod-old", Name: "Old"}}

	remote := testState(200)
	remote.Products = []state.Product{{ID: "prod-new", Name: "New"}}

	res := engine.Merge(context.Background(), local, remote)
	if len(res.State.Products) != 1 || res.State.Products[0].ID != "prod-new" {
		t.Fatalf("non-order collections must be taken from remote, got %+v", res.State.Products)
	}
}

func TestMergeRawRejectsMalformedPayload(t *testing.T) {
	engine, buf := newTestEngine(t)
	local := testState(100, order("ord-1", 1, enums.KitchenStatusQueued))

	res := engine.MergeRaw(context.Background(), local, []byte(`{"restaurantId":"rest-1"`))
	if res.Applied {
		t.Fatalf("malformed payload must not apply")
	}
	if res.State != local {
		t.Fatalf("local state must be retained")
	}
	if !strings.Contains(buf.String(), "malformed remote snapshot") {
		t.Fatalf("expected anomaly log, got %s", buf.String())
	}
}

func TestMergeRawRejectsPartialDocument(t *testing.T) {
	engine, _ := newTestEngine(t)
	local := testState(100)

	// Higher clock but missing required collections.
	partial := []byte(`{"restaurantId":"rest-1","lastUpdatedAt":999}`)
	res := engine.MergeRaw(context.Background(), local, partial)
	if res.Applied {
		t.Fatalf("partial document must not apply")
	}
	if res.State.LastUpdatedAt != 100 {
		t.Fatalf("local clock must be untouched, got %d", res.State.LastUpdatedAt)
	}
}
