package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Category    string          `json:"category,omitempty"`
	IsFavorite  bool            `json:"isFavorite"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UpsertRequest is the admin create/update payload.
// swagger:model UpsertRequest
type UpsertRequest struct {
	Name        string          `json:"name" example:"Roti Sobek Coklat"`
	Description string          `json:"description" example:"Soft pull-apart bread"`
	Price       decimal.Decimal `json:"price" example:"18000"`
	Image       string          `json:"image"`
	Category    string          `json:"category" example:"roti"`
	IsFavorite  bool            `json:"isFavorite"`
}
