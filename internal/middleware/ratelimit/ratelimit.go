// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package ratelimit provides per-client rate limiting for the list endpoints
package ratelimit

import (
	"fmt"
	"time"

	"github.com/badmuriss/warpcms-sub000/internal/pkg/log"
	"github.com/badmuriss/warpcms-sub000/internal/platform/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Rule is the budget for one endpoint group
type Rule struct {
	Enabled bool
	Max     int
	Window  time.Duration
}

// EndpointLimits defines rate limiting configuration for each endpoint group
type EndpointLimits struct {
	// List covers the query-string listings: 120 per minute per IP
	List Rule
	// Query covers structured-body listings: 60 per minute per IP
	Query Rule
	// Admin covers cache administration: 30 per minute per IP
	Admin Rule
}

// DefaultEndpointLimits returns the default rate limits
func DefaultEndpointLimits() EndpointLimits {
	return EndpointLimits{
		List:  Rule{Enabled: true, Max: 120, Window: time.Minute},
		Query: Rule{Enabled: true, Max: 60, Window: time.Minute},
		Admin: Rule{Enabled: true, Max: 30, Window: time.Minute},
	}
}

// LimitsFromConfig maps the RATE_LIMIT_* settings onto EndpointLimits
func LimitsFromConfig(cfg config.RateLimitsConfig) EndpointLimits {
	rule := func(c config.RateLimitConfig) Rule {
		return Rule{Enabled: c.Enabled, Max: c.Max, Window: c.Duration}
	}
	return EndpointLimits{
		List:  rule(cfg.List),
		Query: rule(cfg.Query),
		Admin: rule(cfg.Admin),
	}
}

// EndpointType represents the endpoint groups that are limited separately
type EndpointType int

const (
	EndpointList EndpointType = iota
	EndpointQuery
	EndpointAdmin
)

func (e EndpointType) String() string {
	switch e {
	case EndpointList:
		return "list"
	case EndpointQuery:
		return "query"
	case EndpointAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Config holds the configuration for rate limiting middleware
type Config struct {
	// Endpoint type to determine which limits to apply
	EndpointType EndpointType

	// Custom limits (optional - uses defaults if not provided)
	Limits *EndpointLimits

	// Next defines a function to skip this middleware when returned true
	Next func(c *fiber.Ctx) bool

	// Custom key generator (optional - uses default IP-based if not provided)
	KeyGenerator func(c *fiber.Ctx) string

	// LimitReached defines the response when rate limit is exceeded
	LimitReached func(c *fiber.Ctx) error
}

func (cfg Config) rule() Rule {
	switch cfg.EndpointType {
	case EndpointList:
		return cfg.Limits.List
	case EndpointQuery:
		return cfg.Limits.Query
	case EndpointAdmin:
		return cfg.Limits.Admin
	default:
		return Rule{Enabled: true, Max: 30, Window: time.Minute}
	}
}

// configDefault sets default configuration values
func configDefault(config Config) Config {
	if config.Limits == nil {
		limits := DefaultEndpointLimits()
		config.Limits = &limits
	}

	// one bucket per IP and endpoint group, so collection routes share a budget
	if config.KeyGenerator == nil {
		group := config.EndpointType.String()
		config.KeyGenerator = func(c *fiber.Ctx) string {
			return c.IP() + ":" + group
		}
	}

	if config.LimitReached == nil {
		window := config.rule().Window
		config.LimitReached = func(c *fiber.Ctx) error {
			log.WarnWithContext(c.UserContext(), "[RateLimit] Rate limit exceeded for %s from IP: %s", config.EndpointType, c.IP())

			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   fmt.Sprintf("Too many %s requests. Please try again later.", config.EndpointType),
				"code":    "RATE_LIMIT_EXCEEDED",
				"details": []string{fmt.Sprintf("retry after %d seconds", int(window.Seconds()))},
			})
		}
	}

	return config
}

// New creates a new rate limiting middleware handler. A disabled rule
// returns a pass-through handler.
func New(config Config) fiber.Handler {
	cfg := configDefault(config)
	rule := cfg.rule()

	if !rule.Enabled || rule.Max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return limiter.New(limiter.Config{
		Max:          rule.Max,
		Expiration:   rule.Window,
		KeyGenerator: cfg.KeyGenerator,
		LimitReached: cfg.LimitReached,
		Next:         cfg.Next,
	})
}

// NewListLimiter creates a rate limiter for query-string listings
func NewListLimiter(limits *EndpointLimits) fiber.Handler {
	return New(Config{EndpointType: EndpointList, Limits: limits})
}

// NewQueryLimiter creates a rate limiter for structured-body listings
func NewQueryLimiter(limits *EndpointLimits) fiber.Handler {
	return New(Config{EndpointType: EndpointQuery, Limits: limits})
}

// NewAdminLimiter creates a rate limiter for cache administration
func NewAdminLimiter(limits *EndpointLimits) fiber.Handler {
	return New(Config{EndpointType: EndpointAdmin, Limits: limits})
}
