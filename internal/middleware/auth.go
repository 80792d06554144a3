package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/utils"
)

const userContextKey = "currentUserID"

// AdminChecker confirms that an account still holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uint) (bool, error)
}

// AuthMiddleware validates user JWT tokens and loads the authenticated user ID into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := bearerSubject(c, secret, utils.ScopeUser)
		if err != nil {
			return err
		}

		c.Locals(userContextKey, userID)
		return c.Next()
	}
}

// AdminMiddleware accepts only admin-scoped tokens whose account is still an admin.
func AdminMiddleware(secret string, checker AdminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := bearerSubject(c, secret, utils.ScopeAdmin)
		if err != nil {
			return err
		}

		ok, err := checker.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return err
		}
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}

		c.Locals(userContextKey, userID)
		return c.Next()
	}
}

func bearerSubject(c *fiber.Ctx, secret, scope string) (uint, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
	}

	userID, err := utils.ParseToken(secret, strings.TrimSpace(parts[1]), scope)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}
	return userID, nil
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(userContextKey).(uint)
	return id, ok && id != 0
}
