package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name                string          `gorm:"index" json:"name"`
	Description         string          `json:"description"`
	Image               string          `json:"image"`
	Images              pq.StringArray  `gorm:"type:text[]" json:"images"`
	CategoryID          *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	Category            *Category       `json:"category,omitempty"`
	Price               decimal.Decimal `gorm:"type:numeric(14,2)" json:"price"`
	PriceBeforeDiscount decimal.Decimal `gorm:"type:numeric(14,2)" json:"price_before_discount"`
	Quantity            int             `json:"quantity"`
	Sold                int             `json:"sold"`
	ViewCount           int             `json:"view"`
	Rating              float64         `json:"rating"`
}

// FlashSale is a time-boxed discounted offer for one product.
type FlashSale struct {
	BaseModel
	ProductID uuid.UUID       `gorm:"type:uuid;index" json:"product_id"`
	Product   *Product        `json:"product,omitempty"`
	SalePrice decimal.Decimal `gorm:"type:numeric(14,2)" json:"sale_price"`
	Quantity  int             `json:"quantity"`
	StartsAt  time.Time       `gorm:"index" json:"starts_at"`
	EndsAt    time.Time       `gorm:"index" json:"ends_at"`
}

// ActiveAt reports whether the sale window contains t.
func (f *FlashSale) ActiveAt(t time.Time) bool {
	return !t.Before(f.StartsAt) && t.Before(f.EndsAt)
}
