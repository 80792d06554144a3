package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// OrderHandler manages customer order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderItemRequest struct {
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	ProductName string          `json:"product_name" validate:"max=255"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
}

type deliveryAddressRequest struct {
	FullName     string `json:"full_name" validate:"required,max=120"`
	Phone        string `json:"phone" validate:"required,max=32"`
	ProvinceCode string `json:"province_code" validate:"required"`
	DistrictCode string `json:"district_code" validate:"required"`
	WardCode     string `json:"ward_code" validate:"required"`
	Street       string `json:"street" validate:"required,max=255"`
}

type createOrderRequest struct {
	Items           []orderItemRequest     `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress deliveryAddressRequest `json:"delivery_address"`
	PaymentMethod   string                 `json:"payment_method" validate:"required,oneof=cod stripe momo"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	Notes           string                 `json:"notes" validate:"max=1000"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type momoConfirmRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// CreateOrder places an order for the authenticated user.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	items := make([]services.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.OrderItemInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
		})
	}

	addr := req.DeliveryAddress
	result, err := h.orders.CreateOrder(c.UserContext(), services.CreateOrderInput{
		UserID: userID,
		Items:  items,
		Address: models.DeliveryAddress{
			FullName:     addr.FullName,
			Phone:        addr.Phone,
			ProvinceCode: addr.ProvinceCode,
			DistrictCode: addr.DistrictCode,
			WardCode:     addr.WardCode,
			Street:       addr.Street,
		},
		PaymentMethod: req.PaymentMethod,
		TotalAmount:   req.TotalAmount,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Create order success", result)
}

// ListOrders returns the authenticated user's orders, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	page, err := h.orders.ListUserOrders(c.UserContext(), userID, c.Query("status"), utils.ParsePagination(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get orders success", page)
}

// GetOrder returns a single order owned by the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.GetOrder(c.UserContext(), services.Actor{ID: userID, Role: models.RoleUser}, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get order success", order)
}

func (h *OrderHandler) MomoSettings(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, "Get MoMo settings success", h.orders.MomoSettings())
}

// ConfirmPayment verifies a card payment with the gateway.
func (h *OrderHandler) ConfirmPayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req confirmPaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	order, err := h.orders.ConfirmGatewayPayment(c.UserContext(), userID, id, req.PaymentIntentID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Confirm payment success", order)
}

// MomoConfirm records the customer's report of a manual MoMo transfer. The body is optional.
func (h *OrderHandler) MomoConfirm(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req momoConfirmRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}

	order, err := h.orders.SubmitManualTransferConfirmation(c.UserContext(), userID, id, req.Note)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "MoMo transfer confirmation received", order)
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.CancelOrder(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Cancel order success", order)
}
