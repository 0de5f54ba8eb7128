package enums

import "fmt"

// KitchenStatus tracks food-preparation progress independently of payment.
// The data model accepts any overwrite; forward-only ordering is a UI concern.
type KitchenStatus string

const (
	KitchenStatusQueued    KitchenStatus = "queued"
	KitchenStatusPreparing KitchenStatus = "preparing"
	KitchenStatusReady     KitchenStatus = "ready"
	KitchenStatusServed    KitchenStatus = "served"
)

var validKitchenStatuses = []KitchenStatus{
	KitchenStatusQueued,
	KitchenStatusPreparing,
	KitchenStatusReady,
	KitchenStatusServed,
}

// String implements fmt.Stringer.
func (k KitchenStatus) String() string {
	return string(k)
}

// IsValid reports whether the value is a known KitchenStatus.
func (k KitchenStatus) IsValid() bool {
	for _, candidate := range validKitchenStatuses {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseKitchenStatus converts raw input into a KitchenStatus.
func ParseKitchenStatus(value string) (KitchenStatus, error) {
	for _, candidate := range validKitchenStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid kitchen status %q", value)
}
