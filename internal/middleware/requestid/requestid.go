// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package requestid tags every request with an id that is echoed in the
// response header, stored on the fiber context and carried to the loggers.
package requestid

import (
	"strings"

	"github.com/badmuriss/warpcms-sub000/internal/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

// HeaderRequestID carries the id in both directions.
const HeaderRequestID = "X-Request-ID"

// MaxLength bounds client supplied ids; longer ones are replaced.
const MaxLength = 128

const localsKey = "warpcms.request_id"

// New returns the middleware. A client id is reused only when Valid accepts
// it, otherwise a fresh UUIDv4 is issued.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderRequestID))
		if !Valid(id) {
			id = generate()
		}

		c.Locals(localsKey, id)
		c.SetUserContext(log.WithRequestID(c.UserContext(), id))
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// Valid reports whether id is non-empty, at most MaxLength bytes and made of
// visible ASCII only, so it is safe to echo and to log.
func Valid(id string) bool {
	if id == "" || len(id) > MaxLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '!' || id[i] > '~' {
			return false
		}
	}
	return true
}

func generate() string {
	id, err := uuid.NewV4()
	if err != nil {
		// rand failure; a time based id is still unique per process
		return uuid.Must(uuid.NewV1()).String()
	}
	return id.String()
}

// GetRequestID returns the id assigned by New, or "" outside the middleware.
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsKey).(string)
	return id
}
