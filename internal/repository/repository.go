// Package repository declares the storage contracts the services depend on.
// Implementations live in the memory and postgres subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/lifecycle"
	"github.com/example/storefront/internal/models"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique constraint would be violated.
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrConflict indicates a guarded update found the record in a different state than expected.
	ErrConflict = errors.New("repository: conflict")
)

// Store bundles every repository the application needs.
type Store struct {
	Users      UserRepository
	Categories CategoryRepository
	Products   ProductRepository
	Carts      CartRepository
	Orders     OrderRepository
}

// UserUpdate lists the user fields that may change. Nil fields are left untouched.
type UserUpdate struct {
	Name         *string
	Phone        *string
	Address      *string
	Avatar       *string
	PasswordHash *string
	Roles        []string
	Verified     *bool
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id uint, update UserUpdate) error
	Count(ctx context.Context) (int64, error)
}

type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
}

type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByViews     SortField = "view_count"
	SortBySold      SortField = "sold"
	SortByPrice     SortField = "price"
)

// ProductFilter is a normalised product listing query.
type ProductFilter struct {
	Offset     int
	Limit      int
	SortBy     SortField
	Desc       bool
	PriceMin   *decimal.Decimal
	PriceMax   *decimal.Decimal
	RatingMin  *float64
	Name       string
	CategoryID *uuid.UUID
	ExcludeID  *uuid.UUID
}

type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	CreateFlashSale(ctx context.Context, sale *models.FlashSale) error
	ActiveFlashSales(ctx context.Context, at time.Time) ([]models.FlashSale, error)
}

type CartRepository interface {
	Items(ctx context.Context, userID uint) ([]models.CartItem, error)
	Find(ctx context.Context, userID uint, productID uuid.UUID) (*models.CartItem, error)
	Save(ctx context.Context, item *models.CartItem) error
	Remove(ctx context.Context, userID uint, productID uuid.UUID) error
	Clear(ctx context.Context, userID uint) error
	Count(ctx context.Context, userID uint) (int64, error)
}

// OrderFilter narrows order listings. Zero values mean "any".
type OrderFilter struct {
	UserID        *uint
	OrderStatus   lifecycle.OrderStatus
	PaymentStatus lifecycle.PaymentStatus
	Offset        int
	Limit         int
}

// OrderUpdates lists the order fields a transition may write. Nil fields are left untouched.
type OrderUpdates struct {
	OrderStatus            *lifecycle.OrderStatus
	PaymentStatus          *lifecycle.PaymentStatus
	UserPaymentConfirmed   *bool
	UserPaymentConfirmedAt *time.Time
	MomoTransferNote       *string
}

// OrderTransition is a guarded write: the updates apply only while the stored
// statuses still equal the expected ones, and Record is appended in the same unit of work.
type OrderTransition struct {
	OrderID               uuid.UUID
	ExpectedOrderStatus   lifecycle.OrderStatus
	ExpectedPaymentStatus lifecycle.PaymentStatus
	Updates               OrderUpdates
	Record                models.OrderTransaction
	At                    time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	ApplyTransition(ctx context.Context, t OrderTransition) (*models.Order, error)
	Transactions(ctx context.Context, orderID uuid.UUID) ([]models.OrderTransaction, error)
	CountByStatus(ctx context.Context) (map[lifecycle.OrderStatus]int64, error)
}
