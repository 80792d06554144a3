// Package postgres implements the repository contracts with gorm.
package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/example/storefront/internal/repository"
)

// New returns a Store backed by the given gorm connection.
func New(db *gorm.DB) repository.Store {
	return repository.Store{
		Users:      &UserRepository{db: db},
		Categories: &CategoryRepository{db: db},
		Products:   &ProductRepository{db: db},
		Carts:      &CartRepository{db: db},
		Orders:     &OrderRepository{db: db},
	}
}

// translate maps gorm errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return err
	}
}
