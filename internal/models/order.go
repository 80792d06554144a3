package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/lifecycle"
)

// DeliveryAddress is the resolved shipping destination captured at checkout.
type DeliveryAddress struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	ProvinceCode string `json:"province_code"`
	ProvinceName string `json:"province_name"`
	DistrictCode string `json:"district_code"`
	DistrictName string `json:"district_name"`
	WardCode     string `json:"ward_code"`
	WardName     string `json:"ward_name"`
	Street       string `json:"street"`
}

type Order struct {
	BaseModel
	OrderNumber            string                  `gorm:"uniqueIndex" json:"order_number"`
	UserID                 uint                    `gorm:"index" json:"user_id"`
	Items                  []OrderItem             `json:"items,omitempty"`
	DeliveryAddress        DeliveryAddress         `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery_address"`
	PaymentMethod          lifecycle.PaymentMethod `gorm:"size:16" json:"payment_method"`
	PaymentStatus          lifecycle.PaymentStatus `gorm:"size:16;index" json:"payment_status"`
	OrderStatus            lifecycle.OrderStatus   `gorm:"size:16;index" json:"order_status"`
	TotalAmount            decimal.Decimal         `gorm:"type:numeric(14,2)" json:"total_amount"`
	Currency               string                  `gorm:"size:8" json:"currency"`
	StripePaymentIntentID  string                  `json:"stripe_payment_intent_id,omitempty"`
	MomoTransferNote       string                  `json:"momo_transfer_note,omitempty"`
	UserPaymentConfirmed   bool                    `json:"user_payment_confirmed"`
	UserPaymentConfirmedAt *time.Time              `json:"user_payment_confirmed_at,omitempty"`
	Notes                  string                  `json:"notes"`
}

type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid" json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `gorm:"type:numeric(14,2)" json:"price"`
	Quantity    int             `json:"quantity"`
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal sums the line totals of all items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OrderTransaction is an append-only audit record of an order status change.
type OrderTransaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrderID         uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	TransactionType string    `gorm:"size:32" json:"transaction_type"`
	OldStatus       string    `gorm:"size:16" json:"old_status"`
	NewStatus       string    `gorm:"size:16" json:"new_status"`
	ActorID         uint      `json:"actor_id"`
	ActorRole       string    `gorm:"size:16" json:"actor_role"`
	AdminID         *uint     `json:"admin_id,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
