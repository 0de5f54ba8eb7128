package enums

import "fmt"

// QueuedActionType tags a replayable offline mutation intent.
type QueuedActionType string

const (
	QueuedActionCreateOrder         QueuedActionType = "create_order"
	QueuedActionUpdateKitchenStatus QueuedActionType = "update_kitchen_status"
	QueuedActionUpdateOrder         QueuedActionType = "update_order"
)

var validQueuedActionTypes = []QueuedActionType{
	QueuedActionCreateOrder,
	QueuedActionUpdateKitchenStatus,
	QueuedActionUpdateOrder,
}

// String implements fmt.Stringer.
func (q QueuedActionType) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QueuedActionType.
func (q QueuedActionType) IsValid() bool {
	for _, candidate := range validQueuedActionTypes {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQueuedActionType converts raw input into a QueuedActionType.
func ParseQueuedActionType(value string) (QueuedActionType, error) {
	for _, candidate := range validQueuedActionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid queued action type %q", value)
}
