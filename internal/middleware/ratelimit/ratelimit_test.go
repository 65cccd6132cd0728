// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package ratelimit

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/badmuriss/warpcms-sub000/internal/platform/config"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(handler fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ProxyHeader: "X-Real-IP"})
	app.Use(handler)
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, ip string) int {
	t.Helper()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Real-IP", ip)
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func smallLimits() *EndpointLimits {
	return &EndpointLimits{
		List:  Rule{Enabled: true, Max: 3, Window: time.Minute},
		Query: Rule{Enabled: true, Max: 1, Window: time.Minute},
		Admin: Rule{Enabled: false, Max: 1, Window: time.Minute},
	}
}

func TestRateLimit_List_SuccessWithinLimits(t *testing.T) {
	app := newTestApp(NewListLimiter(smallLimits()))

	for i := 0; i < 3; i++ {
		assert.Equal(t, 200, doGet(t, app, "192.168.1.1"))
	}
}

func TestRateLimit_List_RejectsExcessiveRequests(t *testing.T) {
	app := newTestApp(NewListLimiter(smallLimits()))

	for i := 0; i < 3; i++ {
		require.Equal(t, 200, doGet(t, app, "192.168.1.1"))
	}

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Real-IP", "192.168.1.1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 429, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "RATE_LIMIT_EXCEEDED")
	assert.Contains(t, string(body), "list")
}

func TestRateLimit_DifferentIPs_IndependentLimits(t *testing.T) {
	app := newTestApp(NewQueryLimiter(smallLimits()))

	assert.Equal(t, 200, doGet(t, app, "10.0.0.1"))
	assert.Equal(t, 429, doGet(t, app, "10.0.0.1"))
	assert.Equal(t, 200, doGet(t, app, "10.0.0.2"))
}

func TestRateLimit_DisabledRulePassesThrough(t *testing.T) {
	app := newTestApp(NewAdminLimiter(smallLimits()))

	for i := 0; i < 5; i++ {
		assert.Equal(t, 200, doGet(t, app, "10.0.0.1"))
	}
}

func TestLimitsFromConfig(t *testing.T) {
	limits := LimitsFromConfig(config.RateLimitsConfig{
		List:  config.RateLimitConfig{Enabled: true, Max: 9, Duration: 2 * time.Minute},
		Admin: config.RateLimitConfig{Enabled: false},
	})

	assert.Equal(t, Rule{Enabled: true, Max: 9, Window: 2 * time.Minute}, limits.List)
	assert.False(t, limits.Admin.Enabled)
	assert.False(t, limits.Query.Enabled)
}

func TestEndpointType_String(t *testing.T) {
	assert.Equal(t, "list", EndpointList.String())
	assert.Equal(t, "query", EndpointQuery.String())
	assert.Equal(t, "admin", EndpointAdmin.String())
	assert.Equal(t, "unknown", EndpointType(99).String())
}
