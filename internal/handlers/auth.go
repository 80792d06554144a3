package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	users *services.UserService
	cfg   *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *services.UserService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{users: users, cfg: cfg}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=160"`
	Name     string `json:"name" validate:"max=160"`
	Phone    string `json:"phone" validate:"max=32"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// Register creates a new user account and signs it in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.Create(c.UserContext(), services.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}

	resp, err := h.issue(user, h.cfg.JWTSecret, utils.ScopeUser)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Register success", resp)
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	resp, err := h.issue(user, h.cfg.JWTSecret, utils.ScopeUser)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Login success", resp)
}

// AdminLogin authenticates an administrator and issues an admin-scoped token.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if !user.HasRole(models.RoleAdmin) {
		return services.ErrForbidden
	}

	resp, err := h.issue(user, h.cfg.AdminJWTSecret, utils.ScopeAdmin)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Admin login success", resp)
}

func (h *AuthHandler) issue(user *models.User, secret, scope string) (*authResponse, error) {
	token, err := utils.GenerateToken(secret, user.ID, scope, h.cfg.TokenExpires)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}
	return &authResponse{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(h.cfg.TokenExpires),
		User:        user,
	}, nil
}
