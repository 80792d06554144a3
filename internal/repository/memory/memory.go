// Package memory provides process-local repositories guarded by mutexes.
// It backs tests and STORE_DRIVER=memory deployments.
package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

// New returns a Store whose repositories share one product catalog.
func New() repository.Store {
	products := NewProductRepository()
	return repository.Store{
		Users:      NewUserRepository(),
		Categories: NewCategoryRepository(),
		Products:   products,
		Carts:      NewCartRepository(products),
		Orders:     NewOrderRepository(),
	}
}

func stamp(base *models.BaseModel, now time.Time) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}
