package models

import (
	"encoding/json"
	"time"
)

// RestaurantState is the server-side copy of one restaurant's full state document.
// The document is stored opaque; only the logical clock is lifted into a column
// so the fast path can compare timestamps without decoding the payload.
type RestaurantState struct {
	RestaurantID  string          `gorm:"column:restaurant_id;primaryKey"`
	Payload       json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	LastUpdatedAt int64           `gorm:"column:last_updated_at;not null;default:0"`
	UpdatedBy     string          `gorm:"column:updated_by"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
