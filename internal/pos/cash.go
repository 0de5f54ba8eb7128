package pos

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/security"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

// DeclareCash appends an opening or closing float declaration. Declarations
// are never edited; variance reporting reads the raw series.
func (m *Mutator) DeclareCash(ctx context.Context, st *state.AppState, userID string, kind enums.CashDeclarationType, amount decimal.Decimal, now time.Time) (*state.CashDeclaration, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid declaration type "+kind.String())
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "declared amount cannot be negative")
	}

	declaration := state.CashDeclaration{
		ID:     m.ids(),
		UserID: userID,
		Type:   kind,
		Amount: amount,
		Date:   now.UnixMilli(),
	}
	st.CashDeclarations = append(st.CashDeclarations, declaration)
	st.Touch(now)
	return &st.CashDeclarations[len(st.CashDeclarations)-1], nil
}

// AddExpense records an out-of-pocket cost.
func (m *Mutator) AddExpense(ctx context.Context, st *state.AppState, label, category string, amount decimal.Decimal, now time.Time) (*state.Expense, error) {
	if label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense label required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense amount must be positive")
	}

	expense := state.Expense{
		ID:       m.ids(),
		Label:    label,
		Category: category,
		Amount:   amount,
		Date:     now.UnixMilli(),
	}
	st.Expenses = append(st.Expenses, expense)
	st.Touch(now)
	return &st.Expenses[len(st.Expenses)-1], nil
}

// RequestPinReset records a staff member asking for a PIN reset.
func (m *Mutator) RequestPinReset(ctx context.Context, st *state.AppState, userID string, now time.Time) (*state.PinResetRequest, error) {
	found := false
	for _, u := range st.Users {
		if u.ID == userID {
			found = true
			break
		}
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	request := state.PinResetRequest{
		ID:          m.ids(),
		UserID:      userID,
		RequestedAt: now.UnixMilli(),
	}
	st.PinResetRequests = append(st.PinResetRequests, request)
	st.Touch(now)
	return &st.PinResetRequests[len(st.PinResetRequests)-1], nil
}

// ResolvePinReset marks a reset request handled and stores the new PIN.
// Only the Argon2id hash enters the document; peers verify PINs against
// it without ever seeing the cleartext.
func (m *Mutator) ResolvePinReset(ctx context.Context, st *state.AppState, requestID, newPIN string, now time.Time) error {
	if newPIN == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "new pin required")
	}
	for i := range st.PinResetRequests {
		request := &st.PinResetRequests[i]
		if request.ID != requestID {
			continue
		}
		if request.Resolved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request already resolved")
		}
		hashed, err := security.HashPIN(newPIN)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing pin")
		}
		for j := range st.Users {
			if st.Users[j].ID == request.UserID {
				st.Users[j].PIN = hashed
			}
		}
		request.Resolved = true
		st.Touch(now)
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "pin reset request not found")
}
