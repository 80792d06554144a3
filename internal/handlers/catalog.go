package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
)

// CatalogHandler serves product categories.
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get categories success", categories)
}

func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	category, err := h.catalog.CreateCategory(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Create category success", category)
}
