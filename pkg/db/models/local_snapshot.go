package models

import (
	"encoding/json"
	"time"
)

// LocalSnapshot is the device-local durable copy of the state document.
// A single row per restaurant, overwritten on every persist.
type LocalSnapshot struct {
	RestaurantID  string          `gorm:"column:restaurant_id;primaryKey"`
	Payload       json.RawMessage `gorm:"column:payload;not null"`
	LastUpdatedAt int64           `gorm:"column:last_updated_at;not null;default:0"`
	SavedAt       time.Time       `gorm:"column:saved_at;autoUpdateTime"`
}
