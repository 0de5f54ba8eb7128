package enums

import "fmt"

// OutboxEventType names the events the sync service emits.
type OutboxEventType string

const (
	EventSnapshotUpdated OutboxEventType = "snapshot.updated"
	EventOrderCompleted  OutboxEventType = "order.completed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSnapshotUpdated,
	EventOrderCompleted,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event refers to.
type OutboxAggregateType string

const (
	AggregateRestaurantState OutboxAggregateType = "restaurant_state"
	AggregateOrder           OutboxAggregateType = "order"
)

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// OutboxDLQErrorReason records why an event was parked.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
