// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package admin

import (
	"net/http/httptest"
	"testing"

	"github.com/badmuriss/warpcms-sub000/internal/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(user *types.UserContext, cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals(types.UserCtxName, *user)
		}
		return c.Next()
	})
	app.Use(New(cfg))
	app.Delete("/cache", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAdmin(t *testing.T) {
	tests := []struct {
		name   string
		user   *types.UserContext
		cfg    Config
		status int
	}{
		{"no user", nil, Config{}, fiber.StatusUnauthorized},
		{"plain user", &types.UserContext{SystemRole: types.UserRole}, Config{}, fiber.StatusForbidden},
		{"admin", &types.UserContext{SystemRole: types.AdminRole}, Config{}, fiber.StatusNoContent},
		{
			"custom access hook",
			&types.UserContext{SystemRole: types.EditorRole},
			Config{HasAccess: func(u types.UserContext) bool { return u.SystemRole == types.EditorRole }},
			fiber.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newApp(tt.user, tt.cfg).Test(httptest.NewRequest("DELETE", "/cache", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
