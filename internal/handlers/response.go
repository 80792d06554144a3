package handlers

import "github.com/gofiber/fiber/v2"

// respond writes the standard {message, data} envelope.
func respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}
