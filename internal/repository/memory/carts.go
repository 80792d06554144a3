package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

type cartKey struct {
	userID    uint
	productID uuid.UUID
}

// CartRepository stores one line per (user, product) and joins product data on read.
type CartRepository struct {
	mu       sync.RWMutex
	items    map[cartKey]models.CartItem
	products *ProductRepository
}

func NewCartRepository(products *ProductRepository) *CartRepository {
	return &CartRepository{
		items:    make(map[cartKey]models.CartItem),
		products: products,
	}
}

func (r *CartRepository) Items(_ context.Context, userID uint) ([]models.CartItem, error) {
	r.mu.RLock()
	out := make([]models.CartItem, 0)
	for key, item := range r.items {
		if key.userID == userID {
			out = append(out, item)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	for i := range out {
		r.attachProduct(&out[i])
	}
	return out, nil
}

func (r *CartRepository) Find(_ context.Context, userID uint, productID uuid.UUID) (*models.CartItem, error) {
	r.mu.RLock()
	item, ok := r.items[cartKey{userID, productID}]
	r.mu.RUnlock()

	if !ok {
		return nil, repository.ErrNotFound
	}
	r.attachProduct(&item)
	return &item, nil
}

func (r *CartRepository) Save(_ context.Context, item *models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	key := cartKey{item.UserID, item.ProductID}
	if existing, ok := r.items[key]; ok {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		item.AddedAt = existing.AddedAt
	}
	stamp(&item.BaseModel, now)
	if item.AddedAt.IsZero() {
		item.AddedAt = now
	}

	stored := *item
	stored.Product = nil
	r.items[key] = stored
	return nil
}

func (r *CartRepository) Remove(_ context.Context, userID uint, productID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cartKey{userID, productID}
	if _, ok := r.items[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, key)
	return nil
}

func (r *CartRepository) Clear(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.items {
		if key.userID == userID {
			delete(r.items, key)
		}
	}
	return nil
}

func (r *CartRepository) Count(_ context.Context, userID uint) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for key := range r.items {
		if key.userID == userID {
			count++
		}
	}
	return count, nil
}

func (r *CartRepository) attachProduct(item *models.CartItem) {
	if r.products == nil {
		return
	}
	if p, ok := r.products.snapshot(item.ProductID); ok {
		item.Product = &p
	}
}
