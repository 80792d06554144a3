package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

type CartRepository struct {
	db *gorm.DB
}

func (r *CartRepository) Items(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", userID).
		Order("added_at desc").
		Find(&items).Error
	return items, err
}

func (r *CartRepository) Find(ctx context.Context, userID uint, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).Preload("Product").
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// Save inserts the line or overwrites quantity and price on the existing (user, product) line.
// The stored row is scanned back into item, so an upsert keeps the original id.
func (r *CartRepository) Save(ctx context.Context, item *models.CartItem) error {
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	return r.db.WithContext(ctx).Omit("Product").Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "price", "updated_at"}),
		},
		clause.Returning{},
	).Create(item).Error
}

func (r *CartRepository) Remove(ctx context.Context, userID uint, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

func (r *CartRepository) Count(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
