package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/lifecycle"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	orders *services.OrderService
	users  *services.UserService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(orders *services.OrderService, users *services.UserService) *AdminHandler {
	return &AdminHandler{orders: orders, users: users}
}

type adminOrderView struct {
	*models.Order
	AllowedTransitions []lifecycle.OrderStatus `json:"allowed_transitions"`
}

type updateOrderStatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	ExpectedStatus *string `json:"expected_status"`
	Notes          string  `json:"notes" validate:"max=1000"`
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
	Notes         string `json:"notes" validate:"max=1000"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=User Admin"`
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	totalUsers, err := h.users.Count(ctx)
	if err != nil {
		return err
	}

	byStatus, err := h.orders.CountByStatus(ctx)
	if err != nil {
		return err
	}

	var totalOrders int64
	ordersByStatus := make(map[string]int64, len(byStatus))
	for status, count := range byStatus {
		ordersByStatus[string(status)] = count
		totalOrders += count
	}

	return respond(c, fiber.StatusOK, "Get dashboard success", fiber.Map{
		"total_users":      totalUsers,
		"total_orders":     totalOrders,
		"orders_by_status": ordersByStatus,
	})
}

// ListAllOrders returns every order with pagination and status filters.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	query := services.OrderListQuery{
		OrderStatus:   c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		Page:          utils.ParsePagination(c),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
		}
		userID := uint(id)
		query.UserID = &userID
	}

	page, err := h.orders.ListOrders(c.UserContext(), query)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get orders success", page)
}

func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	adminID, _ := middleware.GetCurrentUserID(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.GetOrder(c.UserContext(), services.Actor{ID: adminID, Role: models.RoleAdmin}, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get order success", adminOrderView{
		Order:              order,
		AllowedTransitions: lifecycle.AllowedOrderTransitions(order.OrderStatus),
	})
}

// OrderTransactions returns the audit trail of an order, oldest first.
func (h *AdminHandler) OrderTransactions(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	records, err := h.orders.Transactions(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get order transactions success", records)
}

// UpdateOrderStatus moves an order along the fulfilment table.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	adminID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateOrderStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	order, err := h.orders.UpdateOrderStatus(c.UserContext(), adminID, id, req.Status, req.ExpectedStatus, req.Notes)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Update order status success", order)
}

func (h *AdminHandler) UpdatePaymentStatus(c *fiber.Ctx) error {
	adminID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req updatePaymentStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	order, err := h.orders.UpdatePaymentStatus(c.UserContext(), adminID, id, req.PaymentStatus, req.Notes)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Update payment status success", order)
}

func (h *AdminHandler) UpdateUserRole(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.users.UpdateRole(c.UserContext(), uint(id), models.Role(req.Role)); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Update role success", nil)
}
