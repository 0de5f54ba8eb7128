package outbox

import (
	"encoding/json"
	"time"
)

// DeviceRef identifies which device produced the event.
type DeviceRef struct {
	RestaurantID string `json:"restaurantId"`
	DeviceID     string `json:"deviceId,omitempty"`
	Role         string `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Device     *DeviceRef      `json:"device,omitempty"`
	Data       json.RawMessage `json:"data"`
}
