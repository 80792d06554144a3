package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

// CartService manages per-user carts with a stock check on every quantity change.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
	locks    *keyedMutex
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, log *zap.Logger) *CartService {
	return &CartService{carts: carts, products: products, logger: log, locks: newKeyedMutex()}
}

func (s *CartService) Items(ctx context.Context, userID uint) ([]models.CartItem, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

// Count returns the number of distinct products in the cart.
func (s *CartService) Count(ctx context.Context, userID uint) (int64, error) {
	count, err := s.carts.Count(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count cart: %w", err)
	}
	return count, nil
}

// Add puts quantity more of the product in the cart.
func (s *CartService) Add(ctx context.Context, userID uint, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, newValidationError("quantity", "must be at least 1")
	}

	unlock := s.locks.Lock(fmt.Sprint(userID))
	defer unlock()

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, translateRepoErr(err, "add to cart")
	}

	current := 0
	existing, err := s.carts.Find(ctx, userID, productID)
	switch {
	case err == nil:
		current = existing.Quantity
	case !isRepoNotFound(err):
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	return s.save(ctx, userID, product, current+quantity)
}

// UpdateQuantity sets the quantity of a product already in the cart.
func (s *CartService) UpdateQuantity(ctx context.Context, userID uint, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, newValidationError("quantity", "must be at least 1")
	}

	unlock := s.locks.Lock(fmt.Sprint(userID))
	defer unlock()

	if _, err := s.carts.Find(ctx, userID, productID); err != nil {
		return nil, translateRepoErr(err, "update cart")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, translateRepoErr(err, "update cart")
	}

	return s.save(ctx, userID, product, quantity)
}

func (s *CartService) save(ctx context.Context, userID uint, product *models.Product, quantity int) (*models.CartItem, error) {
	if quantity > product.Quantity {
		return nil, fmt.Errorf("%s: requested %d, in stock %d: %w", product.Name, quantity, product.Quantity, ErrInsufficientStock)
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: product.ID,
		Quantity:  quantity,
		Price:     product.Price,
	}
	if err := s.carts.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("save cart item: %w", err)
	}
	item.Product = product
	return item, nil
}

func (s *CartService) Remove(ctx context.Context, userID uint, productID uuid.UUID) error {
	return translateRepoErr(s.carts.Remove(ctx, userID, productID), "remove cart item")
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
