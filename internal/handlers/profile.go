package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// ProfileHandler serves the signed-in user's own account.
type ProfileHandler struct {
	users *services.UserService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

type updateProfileRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=160"`
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Address *string `json:"address" validate:"omitempty,max=255"`
	Avatar  *string `json:"avatar" validate:"omitempty,max=512"`
}

type changePasswordRequest struct {
	Password    string `json:"password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=160"`
}

// GetProfile returns the current user.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := h.users.Get(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get profile success", user)
}

// UpdateProfile changes the provided profile fields.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateProfile(c.UserContext(), userID, services.ProfileUpdate{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Avatar:  req.Avatar,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Update profile success", user)
}

// ChangePassword replaces the password after checking the current one.
func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req changePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.users.ChangePassword(c.UserContext(), userID, req.Password, req.NewPassword); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Change password success", nil)
}
