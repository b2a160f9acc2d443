package middleware

import (
	"strings"

	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			logger.Info("JWT validation failed", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		c.Locals("username", claims["username"])
		return c.Next()
	}
}
