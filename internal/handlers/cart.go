package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// CartHandler manages the signed-in user's cart.
type CartHandler struct {
	carts *services.CartService
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type updateCartRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	items, err := h.carts.Items(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get cart success", items)
}

func (h *CartHandler) Count(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	count, err := h.carts.Count(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get cart count success", fiber.Map{"count": count})
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req addToCartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	item, err := h.carts.Add(c.UserContext(), userID, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Add to cart success", item)
}

func (h *CartHandler) Update(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	productID, err := paramUUID(c, "productId")
	if err != nil {
		return err
	}

	var req updateCartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	item, err := h.carts.UpdateQuantity(c.UserContext(), userID, productID, req.Quantity)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Update cart success", item)
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	productID, err := paramUUID(c, "productId")
	if err != nil {
		return err
	}

	if err := h.carts.Remove(c.UserContext(), userID, productID); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Remove from cart success", nil)
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.carts.Clear(c.UserContext(), userID); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Clear cart success", nil)
}
