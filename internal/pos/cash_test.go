package pos

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/security"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

func TestDeclareCashAppends(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyStrict)
	st := state.New("rest-1")

	opening, err := mut.DeclareCash(context.Background(), st, "user-1", enums.CashDeclarationTypeOpening, decimal.NewFromInt(150), testTime)
	if err != nil {
		t.Fatalf("DeclareCash: %v", err)
	}
	if opening.Type != enums.CashDeclarationTypeOpening || !opening.Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected declaration %+v", opening)
	}

	if _, err := mut.DeclareCash(context.Background(), st, "user-1", enums.CashDeclarationTypeClosing, decimal.NewFromFloat(320.50), testTime); err != nil {
		t.Fatalf("DeclareCash closing: %v", err)
	}
	if len(st.CashDeclarations) != 2 {
		t.Fatalf("declarations must append, got %d", len(st.CashDeclarations))
	}
}

func TestDeclareCashRejectsNegativeAmount(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyStrict)
	st := state.New("rest-1")

	_, err := mut.DeclareCash(context.Background(), st, "user-1", enums.CashDeclarationTypeOpening, decimal.NewFromInt(-5), testTime)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddExpense(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyStrict)
	st := state.New("rest-1")

	expense, err := mut.AddExpense(context.Background(), st, "window repair", "maintenance", decimal.NewFromInt(80), testTime)
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if expense.Label != "window repair" || len(st.Expenses) != 1 {
		t.Fatalf("unexpected expense state")
	}

	if _, err := mut.AddExpense(context.Background(), st, "", "", decimal.NewFromInt(10), testTime); err == nil {
		t.Fatalf("expected rejection for empty label")
	}
}

func TestPinResetLifecycle(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyStrict)
	st := state.New("rest-1")
	st.Users = []state.User{{ID: "user-1", Name: "Nadia", Role: enums.UserRoleStaff, PIN: "1111"}}

	request, err := mut.RequestPinReset(context.Background(), st, "user-1", testTime)
	if err != nil {
		t.Fatalf("RequestPinReset: %v", err)
	}
	if request.Resolved {
		t.Fatalf("new request must be unresolved")
	}

	if err := mut.ResolvePinReset(context.Background(), st, request.ID, "4321", testTime); err != nil {
		t.Fatalf("ResolvePinReset: %v", err)
	}
	if ok, err := security.VerifyPIN("4321", st.Users[0].PIN); err != nil || !ok {
		t.Fatalf("new pin not verifiable: ok=%v err=%v", ok, err)
	}
	if st.Users[0].PIN == "4321" {
		t.Fatalf("cleartext pin must not enter the document")
	}
	if !st.PinResetRequests[0].Resolved {
		t.Fatalf("request not marked resolved")
	}

	if err := mut.ResolvePinReset(context.Background(), st, request.ID, "5555", testTime); err == nil {
		t.Fatalf("resolving twice must conflict")
	}
}

func TestRequestPinResetUnknownUser(t *testing.T) {
	mut, _ := newTestMutator(t, StockPolicyStrict)
	st := state.New("rest-1")

	_, err := mut.RequestPinReset(context.Background(), st, "ghost", testTime)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
