package order

import "github.com/shopspring/decimal"

// CreateItem is one cart line in a checkout payload.
// swagger:model CreateItem
type CreateItem struct {
	ProductID int64           `json:"productId" example:"1"`
	Quantity  int             `json:"quantity" example:"2"`
	Price     decimal.Decimal `json:"price" example:"14000"`
}

// CreateRequest is the checkout payload.
// swagger:model CreateRequest
type CreateRequest struct {
	Items           []CreateItem    `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount" example:"46000"`
	ShippingAddress string          `json:"shippingAddress,omitempty"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
}
