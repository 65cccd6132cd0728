// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package admin

import (
	"github.com/badmuriss/warpcms-sub000/internal/types"
	"github.com/gofiber/fiber/v2"
)

type Config struct {
	UserCtxName string
	// Optional override to check custom permission instead of strict role
	HasAccess func(u types.UserContext) bool
}

func deny(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   message,
		"code":    code,
		"details": []string{},
	})
}

// New requires an authenticated user holding the admin role. It must run
// after authjwt.
func New(config Config) fiber.Handler {
	userKey := config.UserCtxName
	if userKey == "" {
		userKey = types.UserCtxName
	}
	hasAccess := config.HasAccess
	if hasAccess == nil {
		hasAccess = types.UserContext.IsAdmin
	}

	return func(c *fiber.Ctx) error {
		user, ok := c.Locals(userKey).(types.UserContext)
		if !ok {
			return deny(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		}
		if !hasAccess(user) {
			return deny(c, fiber.StatusForbidden, "FORBIDDEN", "admin access required")
		}
		return c.Next()
	}
}
