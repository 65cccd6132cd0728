// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package content

import (
	"github.com/badmuriss/warpcms-sub000/content/handlers"
	"github.com/badmuriss/warpcms-sub000/internal/middleware/admin"
	"github.com/badmuriss/warpcms-sub000/internal/middleware/authjwt"
	"github.com/badmuriss/warpcms-sub000/internal/middleware/ratelimit"
	"github.com/badmuriss/warpcms-sub000/internal/middleware/requestid"
	platformconfig "github.com/badmuriss/warpcms-sub000/internal/platform/config"
	"github.com/gofiber/fiber/v2"
)

// ContentHandlers holds all the handlers this router needs.
type ContentHandlers struct {
	ListHandler *handlers.ListHandler
}

// RegisterRoutes is the single entry point for setting up listing routes.
// Content listings are public; references, media and cache administration
// need a session token, and administration the admin role.
func RegisterRoutes(app *fiber.App, h *ContentHandlers, cfg *platformconfig.Config) {
	limits := ratelimit.LimitsFromConfig(cfg.RateLimits)

	jwtMiddleware := authjwt.New(authjwt.Config{
		PublicKey: cfg.JWT.PublicKey,
		ClaimKey:  cfg.JWT.ClaimKey,
	})

	base := cfg.Server.BaseRoute
	if base == "" {
		base = "/api"
	}
	group := app.Group(base, requestid.New())

	group.Get("/health", h.ListHandler.Health)

	// --- Public listings ---
	listLimiter := ratelimit.NewListLimiter(&limits)
	group.Get("/content", listLimiter, h.ListHandler.ListContent)
	group.Post("/content/query", ratelimit.NewQueryLimiter(&limits), h.ListHandler.QueryContent)
	group.Get("/collections/:collectionId/content", listLimiter, h.ListHandler.ListCollectionContent)

	// --- Session routes ---
	group.Get("/references", listLimiter, jwtMiddleware, h.ListHandler.ListReferences)
	group.Get("/media", listLimiter, jwtMiddleware, h.ListHandler.ListMedia)

	// --- Admin ---
	adminGroup := group.Group("/admin", ratelimit.NewAdminLimiter(&limits), jwtMiddleware, admin.New(admin.Config{}))
	adminGroup.Delete("/cache/collections/:collectionId", h.ListHandler.InvalidateCollection)
}
