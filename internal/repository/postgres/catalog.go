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

type CategoryRepository struct {
	db *gorm.DB
}

func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name asc").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return translate(r.db.WithContext(ctx).Create(category).Error)
}

type ProductRepository struct {
	db *gorm.DB
}

func (r *ProductRepository) List(ctx context.Context, f repository.ProductFilter) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if f.Name != "" {
		query = query.Where("name ILIKE ?", "%"+f.Name+"%")
	}
	if f.CategoryID != nil {
		query = query.Where("category_id = ?", *f.CategoryID)
	}
	if f.ExcludeID != nil {
		query = query.Where("id <> ?", *f.ExcludeID)
	}
	if f.PriceMin != nil {
		query = query.Where("price >= ?", *f.PriceMin)
	}
	if f.PriceMax != nil {
		query = query.Where("price <= ?", *f.PriceMax)
	}
	if f.RatingMin != nil {
		query = query.Where("rating >= ?", *f.RatingMin)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = repository.SortByCreatedAt
	}

	var products []models.Product
	err := query.Preload("Category").
		Order(clause.OrderByColumn{Column: clause.Column{Name: string(sortBy)}, Desc: f.Desc}).
		Order("id").
		Limit(f.Limit).Offset(f.Offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return translate(r.db.WithContext(ctx).Omit("Category").Create(product).Error)
}

func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	result := r.db.WithContext(ctx).Model(product).Omit("Category", "CreatedAt").Select("*").Updates(product)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) CreateFlashSale(ctx context.Context, sale *models.FlashSale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Where("id = ?", sale.ProductID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return translate(tx.Omit("Product").Create(sale).Error)
	})
}

func (r *ProductRepository) ActiveFlashSales(ctx context.Context, at time.Time) ([]models.FlashSale, error) {
	var sales []models.FlashSale
	err := r.db.WithContext(ctx).Preload("Product").
		Where("starts_at <= ? AND ends_at > ?", at, at).
		Order("ends_at asc").
		Find(&sales).Error
	return sales, err
}
