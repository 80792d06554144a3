package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one product line in a user's cart. A user holds at most one line per product.
type CartItem struct {
	BaseModel
	UserID    uint            `gorm:"uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Product   *Product        `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(14,2)" json:"price"`
	AddedAt   time.Time       `json:"added_at"`
}
