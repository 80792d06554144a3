package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/utils"
)

// Product listing sort keys as accepted from clients.
const (
	SortCreatedAt = "createdAt"
	SortView      = "view"
	SortSold      = "sold"
	SortPrice     = "price"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

var sortColumns = map[string]repository.SortField{
	SortCreatedAt: repository.SortByCreatedAt,
	SortView:      repository.SortByViews,
	SortSold:      repository.SortBySold,
	SortPrice:     repository.SortByPrice,
}

// ProductQuery is a product listing request. Zero values take defaults.
type ProductQuery struct {
	Page         int
	Limit        int
	SortBy       string
	Order        string
	PriceMin     *decimal.Decimal
	PriceMax     *decimal.Decimal
	RatingFilter *float64
	Name         string
	Category     string
	Exclude      string
}

// ProductPage is one page of products.
type ProductPage struct {
	Products   []models.Product `json:"products"`
	Pagination utils.PageInfo   `json:"pagination"`
}

// Availability answers whether a quantity can be ordered.
type Availability struct {
	Available         bool `json:"available"`
	AvailableQuantity int  `json:"available_quantity"`
}

// CatalogService serves categories, products and flash sales.
type CatalogService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	logger     *zap.Logger
	now        func() time.Time
}

func NewCatalogService(categories repository.CategoryRepository, products repository.ProductRepository, log *zap.Logger) *CatalogService {
	return &CatalogService{categories: categories, products: products, logger: log, now: time.Now}
}

func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	filter, page, err := buildProductFilter(q)
	if err != nil {
		return nil, err
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}

	return &ProductPage{Products: products, Pagination: page.Info(total)}, nil
}

func buildProductFilter(q ProductQuery) (repository.ProductFilter, utils.Pagination, error) {
	fields := map[string]string{}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = SortCreatedAt
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		fields["sort_by"] = "must be one of createdAt, view, sold, price"
	}

	order := strings.ToLower(q.Order)
	if order == "" {
		order = OrderDesc
	}
	if order != OrderAsc && order != OrderDesc {
		fields["order"] = "must be asc or desc"
	}

	if q.Page < 0 {
		fields["page"] = "must be positive"
	}
	if q.Limit < 0 || q.Limit > utils.MaxLimit {
		fields["limit"] = fmt.Sprintf("must be between 1 and %d", utils.MaxLimit)
	}
	if q.PriceMin != nil && q.PriceMax != nil && q.PriceMin.GreaterThan(*q.PriceMax) {
		fields["price_min"] = "must not exceed price_max"
	}
	if q.RatingFilter != nil && (*q.RatingFilter < 0 || *q.RatingFilter > 5) {
		fields["rating_filter"] = "must be between 0 and 5"
	}

	categoryID, err := optionalUUID(q.Category)
	if err != nil {
		fields["category"] = "must be a valid id"
	}
	excludeID, err := optionalUUID(q.Exclude)
	if err != nil {
		fields["exclude"] = "must be a valid id"
	}

	if len(fields) > 0 {
		return repository.ProductFilter{}, utils.Pagination{}, &ValidationError{Message: "invalid product query", Fields: fields}
	}

	page := utils.NewPagination(q.Page, q.Limit)
	return repository.ProductFilter{
		Offset:     page.Offset,
		Limit:      page.Limit,
		SortBy:     column,
		Desc:       order == OrderDesc,
		PriceMin:   q.PriceMin,
		PriceMax:   q.PriceMax,
		RatingMin:  q.RatingFilter,
		Name:       strings.TrimSpace(q.Name),
		CategoryID: categoryID,
		ExcludeID:  excludeID,
	}, page, nil
}

func optionalUUID(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// GetProduct returns a product and counts the view.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if err := s.products.IncrementViews(ctx, id); err != nil {
		return nil, translateRepoErr(err, "get product")
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err, "get product")
	}
	return product, nil
}

func (s *CatalogService) Availability(ctx context.Context, id uuid.UUID, quantity int) (*Availability, error) {
	if quantity < 1 {
		return nil, newValidationError("quantity", "must be at least 1")
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err, "check availability")
	}
	return &Availability{
		Available:         product.Quantity >= quantity,
		AvailableQuantity: product.Quantity,
	}, nil
}

func (s *CatalogService) ActiveFlashSales(ctx context.Context) ([]models.FlashSale, error) {
	sales, err := s.products.ActiveFlashSales(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list flash sales: %w", err)
	}
	return sales, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newValidationError("name", "is required")
	}
	category := &models.Category{Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, translateRepoErr(err, "create category")
	}
	return category, nil
}

// ProductInput carries admin-editable product fields.
type ProductInput struct {
	Name                string
	Description         string
	Image               string
	Images              []string
	CategoryID          *uuid.UUID
	Price               decimal.Decimal
	PriceBeforeDiscount decimal.Decimal
	Quantity            int
	Rating              float64
}

func (in ProductInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "is required"
	}
	if in.Price.IsNegative() {
		fields["price"] = "must not be negative"
	}
	if in.PriceBeforeDiscount.IsNegative() {
		fields["price_before_discount"] = "must not be negative"
	}
	if in.Quantity < 0 {
		fields["quantity"] = "must not be negative"
	}
	if in.Rating < 0 || in.Rating > 5 {
		fields["rating"] = "must be between 0 and 5"
	}
	if len(fields) > 0 {
		return &ValidationError{Message: "invalid product", Fields: fields}
	}
	return nil
}

func (s *CatalogService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.categories.FindByID(ctx, *id); err != nil {
		return translateRepoErr(err, "category")
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{}
	applyProductInput(product, in)
	if err := s.products.Create(ctx, product); err != nil {
		return nil, translateRepoErr(err, "create product")
	}
	s.logger.Info("product created", zap.String("product_id", product.ID.String()))
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err, "update product")
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	applyProductInput(product, in)
	product.Category = nil
	if err := s.products.Update(ctx, product); err != nil {
		return nil, translateRepoErr(err, "update product")
	}
	return product, nil
}

func applyProductInput(p *models.Product, in ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Image = in.Image
	p.Images = append([]string{}, in.Images...)
	p.CategoryID = in.CategoryID
	p.Price = in.Price
	p.PriceBeforeDiscount = in.PriceBeforeDiscount
	p.Quantity = in.Quantity
	p.Rating = in.Rating
}

type FlashSaleInput struct {
	ProductID uuid.UUID
	SalePrice decimal.Decimal
	Quantity  int
	StartsAt  time.Time
	EndsAt    time.Time
}

func (s *CatalogService) CreateFlashSale(ctx context.Context, in FlashSaleInput) (*models.FlashSale, error) {
	fields := map[string]string{}
	if !in.SalePrice.IsPositive() {
		fields["sale_price"] = "must be positive"
	}
	if in.Quantity < 1 {
		fields["quantity"] = "must be at least 1"
	}
	if !in.EndsAt.After(in.StartsAt) {
		fields["ends_at"] = "must be after starts_at"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Message: "invalid flash sale", Fields: fields}
	}

	sale := &models.FlashSale{
		ProductID: in.ProductID,
		SalePrice: in.SalePrice,
		Quantity:  in.Quantity,
		StartsAt:  in.StartsAt,
		EndsAt:    in.EndsAt,
	}
	if err := s.products.CreateFlashSale(ctx, sale); err != nil {
		return nil, translateRepoErr(err, "create flash sale")
	}
	return sale, nil
}
