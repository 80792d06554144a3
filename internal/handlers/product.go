package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/services"
)

// ProductHandler manages product endpoints.
type ProductHandler struct {
	catalog *services.CatalogService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(catalog *services.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

type productRequest struct {
	Name                string          `json:"name" validate:"required,max=255"`
	Description         string          `json:"description"`
	Image               string          `json:"image" validate:"omitempty,url"`
	Images              []string        `json:"images" validate:"omitempty,dive,url"`
	CategoryID          *uuid.UUID      `json:"category_id"`
	Price               decimal.Decimal `json:"price"`
	PriceBeforeDiscount decimal.Decimal `json:"price_before_discount"`
	Quantity            int             `json:"quantity" validate:"min=0"`
	Rating              float64         `json:"rating" validate:"min=0,max=5"`
}

func (r productRequest) input() services.ProductInput {
	return services.ProductInput{
		Name:                r.Name,
		Description:         r.Description,
		Image:               r.Image,
		Images:              r.Images,
		CategoryID:          r.CategoryID,
		Price:               r.Price,
		PriceBeforeDiscount: r.PriceBeforeDiscount,
		Quantity:            r.Quantity,
		Rating:              r.Rating,
	}
}

type flashSaleRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	StartsAt  time.Time       `json:"starts_at" validate:"required"`
	EndsAt    time.Time       `json:"ends_at" validate:"required"`
}

// ListProducts returns a filtered, sorted page of products.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	query := services.ProductQuery{
		Page:     c.QueryInt("page", 0),
		Limit:    c.QueryInt("limit", 0),
		SortBy:   c.Query("sort_by"),
		Order:    c.Query("order"),
		Name:     c.Query("name"),
		Category: c.Query("category"),
		Exclude:  c.Query("exclude"),
	}

	fields := map[string]string{}
	query.PriceMin = queryDecimal(c, "price_min", fields)
	query.PriceMax = queryDecimal(c, "price_max", fields)
	if raw := c.Query("rating_filter"); raw != "" {
		rating := c.QueryFloat("rating_filter", -1)
		query.RatingFilter = &rating
	}
	if len(fields) > 0 {
		return &services.ValidationError{Message: "invalid product query", Fields: fields}
	}

	page, err := h.catalog.ListProducts(c.UserContext(), query)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get products success", page)
}

func queryDecimal(c *fiber.Ctx, key string, fields map[string]string) *decimal.Decimal {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		fields[key] = "must be a number"
		return nil
	}
	return &value
}

// GetProduct returns a single product and counts the view.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	product, err := h.catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get product success", product)
}

func (h *ProductHandler) Availability(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	availability, err := h.catalog.Availability(c.UserContext(), id, c.QueryInt("quantity", 1))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Check availability success", availability)
}

func (h *ProductHandler) ActiveFlashSales(c *fiber.Ctx) error {
	sales, err := h.catalog.ActiveFlashSales(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get flash sales success", sales)
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.CreateProduct(c.UserContext(), req.input())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Create product success", product)
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req productRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.UpdateProduct(c.UserContext(), id, req.input())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Update product success", product)
}

func (h *ProductHandler) CreateFlashSale(c *fiber.Ctx) error {
	var req flashSaleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sale, err := h.catalog.CreateFlashSale(c.UserContext(), services.FlashSaleInput{
		ProductID: req.ProductID,
		SalePrice: req.SalePrice,
		Quantity:  req.Quantity,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Create flash sale success", sale)
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}
