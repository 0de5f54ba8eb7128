package models

import (
	"encoding/json"
	"time"

	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
)

// QueuedAction is one pending mutation recorded while the device was offline.
// Rows are replayed in insertion order and deleted once acknowledged. Seq is
// the replay order: the database assigns it monotonically on insert, so FIFO
// holds even when two actions land in the same created_at tick.
type QueuedAction struct {
	Seq          int64                  `gorm:"column:seq;primaryKey;autoIncrement"`
	ID           string                 `gorm:"column:id;uniqueIndex;not null"`
	RestaurantID string                 `gorm:"column:restaurant_id;not null;index"`
	ActionType   enums.QueuedActionType `gorm:"column:action_type;not null"`
	Payload      json.RawMessage        `gorm:"column:payload;not null"`
	Attempts     int                    `gorm:"column:attempts;not null;default:0"`
	LastError    *string                `gorm:"column:last_error"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
}
