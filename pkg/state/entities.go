package state

import (
	"github.com/shopspring/decimal"

	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
)

// User is a staff member able to unlock a device with a PIN.
type User struct {
	ID   string         `json:"id" validate:"required"`
	Name string         `json:"name" validate:"required"`
	Role enums.UserRole `json:"role" validate:"required"`
	PIN  string         `json:"pin"`
}

// RecipeItem maps a product to one ingredient consumption.
type RecipeItem struct {
	IngredientID string          `json:"ingredientId" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// Product is a sellable menu entry. Price and name are snapshotted onto
// order items at sale time so later menu edits do not rewrite history.
type Product struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Recipe   []RecipeItem    `json:"recipe"`
}

// Ingredient carries the live stock level and the weighted-average unit
// cost. Stock may legally go negative on the permissive device profile.
type Ingredient struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Unit     string          `json:"unit"`
	Stock    decimal.Decimal `json:"stock"`
	MinStock decimal.Decimal `json:"minStock"`
	AvgCost  decimal.Decimal `json:"avgCost"`
}

// Table is a physical table an order can be attached to.
type Table struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Seats int    `json:"seats"`
}

// OrderItem is a line of an order with name and price snapshots.
type OrderItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	Note      string          `json:"note,omitempty"`
}

// Order is the only entity merged at record granularity across devices.
// Version strictly increases on every mutation and is the merge tie-breaker.
type Order struct {
	ID            string              `json:"id" validate:"required"`
	Number        int                 `json:"number"`
	Items         []OrderItem         `json:"items"`
	Total         decimal.Decimal     `json:"total"`
	Status        enums.OrderStatus   `json:"status" validate:"required"`
	KitchenStatus enums.KitchenStatus `json:"kitchenStatus" validate:"required"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod,omitempty"`
	InvoiceNumber string              `json:"invoiceNumber,omitempty"`
	UserID        string              `json:"userId"`
	PaidByUserID  string              `json:"paidByUserId,omitempty"`
	TableID       string              `json:"tableId,omitempty"`
	Version       int                 `json:"version" validate:"gte=1"`
	Date          int64               `json:"date"`
	UpdatedAt     int64               `json:"updatedAt"`
}

// Partner is a supplier or service provider.
type Partner struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// SupplierOrderItem is one purchased line of a supplier order.
type SupplierOrderItem struct {
	IngredientID string          `json:"ingredientId" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unitCost"`
}

// SupplierOrder is a purchase order; receiving it is a one-way transition.
type SupplierOrder struct {
	ID         string                    `json:"id" validate:"required"`
	PartnerID  string                    `json:"partnerId"`
	Items      []SupplierOrderItem       `json:"items"`
	TotalCost  decimal.Decimal           `json:"totalCost"`
	Status     enums.SupplierOrderStatus `json:"status" validate:"required"`
	Date       int64                     `json:"date"`
	ReceivedAt int64                     `json:"receivedAt,omitempty"`
}

// StockMovement is an append-only ledger entry. Never mutated or deleted;
// stock levels are reconstructible from the sum of movements.
type StockMovement struct {
	ID           string             `json:"id" validate:"required"`
	IngredientID string             `json:"ingredientId" validate:"required"`
	Quantity     decimal.Decimal    `json:"quantity"`
	Type         enums.MovementType `json:"type" validate:"required"`
	Date         int64              `json:"date"`
	Reference    string             `json:"reference,omitempty"`
}

// CashDeclaration is an append-only opening/closing float declaration.
type CashDeclaration struct {
	ID     string                    `json:"id" validate:"required"`
	UserID string                    `json:"userId"`
	Type   enums.CashDeclarationType `json:"type" validate:"required"`
	Amount decimal.Decimal           `json:"amount"`
	Date   int64                     `json:"date"`
}

// Expense is an out-of-pocket cost recorded by the back office.
type Expense struct {
	ID       string          `json:"id" validate:"required"`
	Label    string          `json:"label"`
	Category string          `json:"category,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Date     int64           `json:"date"`
}

// PinResetRequest records a staff member asking the owner to reset a PIN.
type PinResetRequest struct {
	ID          string `json:"id" validate:"required"`
	UserID      string `json:"userId"`
	RequestedAt int64  `json:"requestedAt"`
	Resolved    bool   `json:"resolved"`
}
