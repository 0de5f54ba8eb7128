package enums

import "testing"

func TestKitchenStatusParse(t *testing.T) {
	got, err := ParseKitchenStatus("preparing")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != KitchenStatusPreparing {
		t.Fatalf("unexpected status %s", got)
	}
	if _, err := ParseKitchenStatus("plated"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestOrderStatusValidity(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled} {
		if !s.IsValid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if OrderStatus("refunded").IsValid() {
		t.Fatal("unknown status must be invalid")
	}
}

func TestQueuedActionTypeRoundTrip(t *testing.T) {
	for _, a := range validQueuedActionTypes {
		parsed, err := ParseQueuedActionType(a.String())
		if err != nil || parsed != a {
			t.Fatalf("round trip failed for %s: %v", a, err)
		}
	}
}
