package device

import "github.com/shopspring/decimal"

type orderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Note      string `json:"note"`
}

type createOrderRequest struct {
	Items   []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	UserID  string             `json:"userId" validate:"required"`
	TableID string             `json:"tableId"`
}

type updateKitchenStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type updateOrderItemsRequest struct {
	Items []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type payOrderRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	PaidByUserID  string `json:"paidByUserId" validate:"required"`
}

type supplierOrderItemRequest struct {
	IngredientID string          `json:"ingredientId" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unitCost"`
}

type createSupplierOrderRequest struct {
	PartnerID string                     `json:"partnerId" validate:"required"`
	Items     []supplierOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type adjustStockRequest struct {
	NewStock decimal.Decimal `json:"newStock"`
	Reason   string          `json:"reason" validate:"required"`
}

type declareCashRequest struct {
	UserID string          `json:"userId" validate:"required"`
	Type   string          `json:"type" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type addExpenseRequest struct {
	Label    string          `json:"label" validate:"required"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type requestPinResetRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type resolvePinResetRequest struct {
	PIN string `json:"pin" validate:"required,len=4,numeric"`
}
