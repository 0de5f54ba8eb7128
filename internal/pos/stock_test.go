package pos

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

func TestReceiveSupplierOrderRecomputesWeightedAverage(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyStrict)
	st := state.New("rest-1")
	st.Ingredients = []state.Ingredient{
		{ID: "ing-beef", Name: "Beef", Unit: "kg", Stock: decimal.NewFromInt(5), AvgCost: decimal.NewFromFloat(1.50)},
	}

	created, err := mut.CreateSupplierOrder(context.Background(), st, "partner-1", []SupplierOrderItemInput{
		{IngredientID: "ing-beef", Quantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromFloat(2.00)},
	}, testTime)
	if err != nil {
		t.Fatalf("CreateSupplierOrder: %v", err)
	}
	if created.Status != enums.SupplierOrderStatusPending {
		t.Fatalf("new supplier order must be pending")
	}
	if !created.TotalCost.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected total cost %s", created.TotalCost)
	}

	received, err := mut.ReceiveSupplierOrder(context.Background(), st, created.ID, testTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("ReceiveSupplierOrder: %v", err)
	}
	if received.Status != enums.SupplierOrderStatusReceived || received.ReceivedAt == 0 {
		t.Fatalf("unexpected received order %+v", received)
	}

	beef := st.FindIngredient("ing-beef")
	if !beef.Stock.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("stock = %s, want 15", beef.Stock)
	}
	// (5*1.50 + 10*2.00) / 15 = 1.8333...
	want := decimal.NewFromFloat(27.5).Div(decimal.NewFromInt(15))
	if !beef.AvgCost.Equal(want) {
		t.Fatalf("avg cost = %s, want %s", beef.AvgCost, want)
	}

	if len(st.StockMovements) != 1 {
		t.Fatalf("expected one purchase movement, got %d", len(st.StockMovements))
	}
	mv := st.StockMovements[0]
	if mv.Type != enums.MovementTypePurchase || !mv.Quantity.Equal(decimal.NewFromInt(10)) || mv.Reference != created.ID {
		t.Fatalf("unexpected movement %+v", mv)
	}
}

func TestReceiveSupplierOrderZeroStockResetsAverage(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyStrict)
	st := state.New("rest-1")
	st.Ingredients = []state.Ingredient{
		{ID: "ing-oil", Name: "Oil", Unit: "l", Stock: decimal.Zero, AvgCost: decimal.NewFromFloat(9.99)},
	}

	created, err := mut.CreateSupplierOrder(context.Background(), st, "partner-1", []SupplierOrderItemInput{
		{IngredientID: "ing-oil", Quantity: decimal.NewFromInt(4), UnitCost: decimal.NewFromFloat(3.25)},
	}, testTime)
	if err != nil {
		t.Fatalf("CreateSupplierOrder: %v", err)
	}
	if _, err := mut.ReceiveSupplierOrder(context.Background(), st, created.ID, testTime); err != nil {
		t.Fatalf("ReceiveSupplierOrder: %v", err)
	}

	oil := st.FindIngredient("ing-oil")
	if !oil.AvgCost.Equal(decimal.NewFromFloat(3.25)) {
		t.Fatalf("zero prior stock must reset average to unit cost, got %s", oil.AvgCost)
	}
}

func TestReceiveSupplierOrderIsIdempotent(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyStrict)
	st := state.New("rest-1")
	st.Ingredients = []state.Ingredient{
		{ID: "ing-beef", Name: "Beef", Stock: decimal.NewFromInt(5), AvgCost: decimal.NewFromFloat(1.50)},
	}
	created, err := mut.CreateSupplierOrder(context.Background(), st, "partner-1", []SupplierOrderItemInput{
		{IngredientID: "ing-beef", Quantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromFloat(2.00)},
	}, testTime)
	if err != nil {
		t.Fatalf("CreateSupplierOrder: %v", err)
	}

	if _, err := mut.ReceiveSupplierOrder(context.Background(), st, created.ID, testTime); err != nil {
		t.Fatalf("first receive: %v", err)
	}
	stockAfterFirst := st.FindIngredient("ing-beef").Stock
	movementsAfterFirst := len(st.StockMovements)

	if _, err := mut.ReceiveSupplierOrder(context.Background(), st, created.ID, testTime.Add(time.Hour)); err != nil {
		t.Fatalf("second receive must be a no-op, got %v", err)
	}
	if !st.FindIngredient("ing-beef").Stock.Equal(stockAfterFirst) {
		t.Fatalf("re-receiving must not change stock")
	}
	if len(st.StockMovements) != movementsAfterFirst {
		t.Fatalf("re-receiving must not append movements")
	}
}

func TestAdjustIngredientStockRecordsAdjustmentMovement(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyStrict)
	st := state.New("rest-1")
	st.Ingredients = []state.Ingredient{
		{ID: "ing-beef", Name: "Beef", Stock: decimal.NewFromInt(7)},
	}

	ingredient, err := mut.AdjustIngredientStock(context.Background(), st, "ing-beef", decimal.NewFromInt(4), "inventory count", testTime)
	if err != nil {
		t.Fatalf("AdjustIngredientStock: %v", err)
	}
	if !ingredient.Stock.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("stock = %s, want 4", ingredient.Stock)
	}
	if len(st.StockMovements) != 1 {
		t.Fatalf("expected adjustment movement")
	}
	mv := st.StockMovements[0]
	if mv.Type != enums.MovementTypeAdjustment || !mv.Quantity.Equal(decimal.NewFromInt(-3)) {
		t.Fatalf("unexpected movement %+v", mv)
	}
}

// Stock ledger conservation: final stock equals initial stock plus the sum of
// every movement referencing the ingredient, across sales, purchases and
// corrections.
func TestStockLedgerConservation(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyPermissive)
	st := newMenuState()
	initial := map[string]decimal.Decimal{}
	for _, ing := range st.Ingredients {
		initial[ing.ID] = ing.Stock
	}

	if _, err := mut.CreateOrder(context.Background(), st, CreateOrderInput{
		Items: []OrderItemInput{{ProductID: "prod-pizza", Quantity: 3}},
		Now:   testTime,
	}); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	created, err := mut.CreateSupplierOrder(context.Background(), st, "partner-1", []SupplierOrderItemInput{
		{IngredientID: "ing-cheese", Quantity: decimal.NewFromInt(8), UnitCost: decimal.NewFromFloat(5.00)},
	}, testTime)
	if err != nil {
		t.Fatalf("CreateSupplierOrder: %v", err)
	}
	if _, err := mut.ReceiveSupplierOrder(context.Background(), st, created.ID, testTime); err != nil {
		t.Fatalf("ReceiveSupplierOrder: %v", err)
	}
	if _, err := mut.AdjustIngredientStock(context.Background(), st, "ing-flour", decimal.NewFromInt(20), "recount", testTime); err != nil {
		t.Fatalf("AdjustIngredientStock: %v", err)
	}

	for _, ing := range st.Ingredients {
		sum := decimal.Zero
		for _, mv := range st.StockMovements {
			if mv.IngredientID == ing.ID {
				sum = sum.Add(mv.Quantity)
			}
		}
		want := initial[ing.ID].Add(sum)
		if !ing.Stock.Equal(want) {
			t.Fatalf("ledger mismatch for %s: stock=%s initial+movements=%s", ing.ID, ing.Stock, want)
		}
	}
}

func TestReceiveUnknownSupplierOrder(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyStrict)
	st := state.New("rest-1")

	_, err := mut.ReceiveSupplierOrder(context.Background(), st, "so-missing", testTime)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
