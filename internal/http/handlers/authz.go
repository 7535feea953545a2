package handlers

import (
	"github.com/gofiber/fiber/v2"

	"onebid/internal/domain"
	applog "onebid/internal/log"
	"onebid/internal/services"
)

// current returns the authenticated profile, or nil for visitors.
func current(c *fiber.Ctx) *domain.Profile {
	u, _ := c.Locals("user").(*domain.Profile)
	return u
}

// OptionalUser attaches the caller's profile when a valid bearer token is
// present and lets visitors through otherwise.
func OptionalUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tok := services.ExtractBearer(c.Get(fiber.HeaderAuthorization)); tok != "" {
			if u, err := auth.CurrentUser(tok); err == nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	}
}

// RequireUser rejects requests without a valid bearer token.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := services.ExtractBearer(c.Get(fiber.HeaderAuthorization))
		if tok == "" {
			applog.Security(c, "access.denied.anonymous", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required", "code": domain.KindUnauthorized.String()})
		}
		u, err := auth.CurrentUser(tok)
		if err != nil {
			return fail(c, "auth.token", err)
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// RequireSuper runs after RequireUser and admits super users only.
func RequireSuper() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := current(c)
		if !u.IsSuper() {
			applog.Security(c, "access.denied.super", nil)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "super user access required", "code": domain.KindForbidden.String()})
		}
		return c.Next()
	}
}
