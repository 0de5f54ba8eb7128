package payloads

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotUpdatedEvent carries the full state document so subscribed devices
// can reconcile without a follow-up fetch.
type SnapshotUpdatedEvent struct {
	RestaurantID  string          `json:"restaurantId"`
	LastUpdatedAt int64           `json:"lastUpdatedAt"`
	UpdatedBy     string          `json:"updatedBy,omitempty"`
	Document      json.RawMessage `json:"document"`
}

// OrderCompletedEvent is emitted when an order is paid and closed.
type OrderCompletedEvent struct {
	RestaurantID  string          `json:"restaurantId"`
	OrderID       string          `json:"orderId"`
	OrderNumber   int             `json:"orderNumber"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	CompletedAt   time.Time       `json:"completedAt"`
}
