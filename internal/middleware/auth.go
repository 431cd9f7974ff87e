package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/foxxcyber/trade-basket/internal/config"
	"github.com/foxxcyber/trade-basket/internal/models"
)

// JWTClaims represents the claims issued by the identity provider
type JWTClaims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

func parseToken(cfg *config.Config, tokenString string) (*JWTClaims, bool) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, false
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, false
	}
	return claims, true
}

func storeIdentity(c *fiber.Ctx, claims *JWTClaims) {
	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}
	c.Locals("identity", models.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   role,
	})
}

// AuthRequired middleware checks for a valid JWT token
func AuthRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "missing authorization header",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid authorization format",
			})
		}

		claims, ok := parseToken(cfg, strings.TrimPrefix(authHeader, "Bearer "))
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid or expired token",
			})
		}

		storeIdentity(c, claims)
		return c.Next()
	}
}

// AuthOptional parses the JWT if present but doesn't require it, so public
// endpoints can still identify signed-in users
func AuthOptional(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Next()
		}

		if claims, ok := parseToken(cfg, strings.TrimPrefix(authHeader, "Bearer ")); ok {
			storeIdentity(c, claims)
		}
		return c.Next()
	}
}

// AdminRequired middleware checks if the user has admin role
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := GetIdentity(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "unauthorized",
			})
		}

		if !id.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "admin access required",
			})
		}

		return c.Next()
	}
}

// GetIdentity returns the authenticated caller, if any
func GetIdentity(c *fiber.Ctx) (models.Identity, bool) {
	id, ok := c.Locals("identity").(models.Identity)
	return id, ok
}

// GetUserID returns the authenticated user's id, or "" for anonymous callers
func GetUserID(c *fiber.Ctx) string {
	if id, ok := GetIdentity(c); ok {
		return id.UserID
	}
	return ""
}
