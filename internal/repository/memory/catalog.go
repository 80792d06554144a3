package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

type CategoryRepository struct {
	mu         sync.RWMutex
	categories map[uuid.UUID]models.Category
}

func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{categories: make(map[uuid.UUID]models.Category)}
}

func (r *CategoryRepository) List(context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoryRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *CategoryRepository) Create(_ context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return repository.ErrDuplicate
		}
	}

	stamp(&category.BaseModel, time.Now())
	r.categories[category.ID] = *category
	return nil
}

// ProductRepository keeps products and flash sales in memory.
type ProductRepository struct {
	mu         sync.RWMutex
	products   map[uuid.UUID]models.Product
	flashSales []models.FlashSale
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[uuid.UUID]models.Product)}
}

func (r *ProductRepository) List(_ context.Context, f repository.ProductFilter) ([]models.Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(f.Name))
	matched := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
			continue
		}
		if f.ExcludeID != nil && p.ID == *f.ExcludeID {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if f.PriceMin != nil && p.Price.LessThan(*f.PriceMin) {
			continue
		}
		if f.PriceMax != nil && p.Price.GreaterThan(*f.PriceMax) {
			continue
		}
		if f.RatingMin != nil && p.Rating < *f.RatingMin {
			continue
		}
		matched = append(matched, cloneProduct(p))
	}

	sort.SliceStable(matched, func(i, j int) bool {
		cmp := compareProducts(matched[i], matched[j], f.SortBy)
		if cmp == 0 {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		if f.Desc {
			return cmp > 0
		}
		return cmp < 0
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []models.Product{}, total, nil
	}
	end := len(matched)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func compareProducts(a, b models.Product, field repository.SortField) int {
	switch field {
	case repository.SortByPrice:
		return a.Price.Cmp(b.Price)
	case repository.SortByViews:
		return a.ViewCount - b.ViewCount
	case repository.SortBySold:
		return a.Sold - b.Sold
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r *ProductRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneProduct(p)
	return &out, nil
}

func (r *ProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamp(&product.BaseModel, time.Now())
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

func (r *ProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return repository.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

func (r *ProductRepository) IncrementViews(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.ViewCount++
	r.products[id] = p
	return nil
}

func (r *ProductRepository) CreateFlashSale(_ context.Context, sale *models.FlashSale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[sale.ProductID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&sale.BaseModel, time.Now())
	stored := *sale
	stored.Product = nil
	r.flashSales = append(r.flashSales, stored)
	return nil
}

func (r *ProductRepository) ActiveFlashSales(_ context.Context, at time.Time) ([]models.FlashSale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.FlashSale{}
	for _, sale := range r.flashSales {
		if !sale.ActiveAt(at) {
			continue
		}
		if p, ok := r.products[sale.ProductID]; ok {
			product := cloneProduct(p)
			sale.Product = &product
		}
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

// snapshot returns a copy of the product for cart previews; ok is false when missing.
func (r *ProductRepository) snapshot(id uuid.UUID) (models.Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return models.Product{}, false
	}
	return cloneProduct(p), true
}

func cloneProduct(p models.Product) models.Product {
	p.Images = append([]string(nil), p.Images...)
	if p.Category != nil {
		c := *p.Category
		p.Category = &c
	}
	return p
}
