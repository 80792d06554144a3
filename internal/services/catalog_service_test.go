package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/repository/memory"
)

func newCatalog(t *testing.T) (*CatalogService, repository.Store) {
	t.Helper()
	store := memory.New()
	return NewCatalogService(store.Categories, store.Products, zap.NewNop()), store
}

func TestListProductsPagination(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.CreateProduct(ctx, ProductInput{Name: "Item", Price: decimal.NewFromInt(int64(i + 1)), Quantity: 1})
		require.NoError(t, err)
	}

	page, err := svc.ListProducts(ctx, ProductQuery{Page: 3, Limit: 10, SortBy: SortPrice, Order: OrderAsc})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Pagination.PageSize)
	assert.Equal(t, int64(25), page.Pagination.Total)
	require.Len(t, page.Products, 5)
	assert.True(t, page.Products[0].Price.Equal(decimal.NewFromInt(21)))

	page, err = svc.ListProducts(ctx, ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 20, page.Pagination.Limit)
	assert.Len(t, page.Products, 20)
}

func TestListProductsRejectsInvalidQuery(t *testing.T) {
	svc, _ := newCatalog(t)

	_, err := svc.ListProducts(context.Background(), ProductQuery{SortBy: "name", Order: "up", Category: "x"})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Fields, "sort_by")
	assert.Contains(t, vErr.Fields, "order")
	assert.Contains(t, vErr.Fields, "category")
}

func TestGetProductCountsViews(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, ProductInput{Name: "Lamp", Price: decimal.NewFromInt(5), Quantity: 3})
	require.NoError(t, err)

	_, err = svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount)

	_, err = svc.GetProduct(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAvailability(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, ProductInput{Name: "Mug", Price: decimal.NewFromInt(5), Quantity: 3})
	require.NoError(t, err)

	a, err := svc.Availability(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, &Availability{Available: true, AvailableQuantity: 3}, a)

	a, err = svc.Availability(ctx, product.ID, 4)
	require.NoError(t, err)
	assert.False(t, a.Available)
}

func TestCategoriesAndFlashSales(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Tea")
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, "tea")
	assert.ErrorIs(t, err, ErrConflict)

	missing := uuid.New()
	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Oolong", CategoryID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)

	product, err := svc.CreateProduct(ctx, ProductInput{Name: "Oolong", CategoryID: &category.ID, Price: decimal.NewFromInt(9), Quantity: 4})
	require.NoError(t, err)

	now := time.Now()
	_, err = svc.CreateFlashSale(ctx, FlashSaleInput{
		ProductID: product.ID,
		SalePrice: decimal.NewFromInt(7),
		Quantity:  2,
		StartsAt:  now.Add(-time.Hour),
		EndsAt:    now.Add(time.Hour),
	})
	require.NoError(t, err)

	sales, err := svc.ActiveFlashSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.NotNil(t, sales[0].Product)
	assert.Equal(t, "Oolong", sales[0].Product.Name)

	_, err = svc.CreateFlashSale(ctx, FlashSaleInput{ProductID: product.ID, SalePrice: decimal.NewFromInt(7), Quantity: 1, StartsAt: now, EndsAt: now})
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestUpdateProduct(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, ProductInput{Name: "Cup", Price: decimal.NewFromInt(3), Quantity: 1})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, product.ID, ProductInput{Name: "Big cup", Price: decimal.NewFromInt(4), Quantity: 8})
	require.NoError(t, err)
	assert.Equal(t, "Big cup", updated.Name)
	assert.Equal(t, 8, updated.Quantity)

	_, err = svc.UpdateProduct(ctx, uuid.New(), ProductInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}
