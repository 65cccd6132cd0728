// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package requestid

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/badmuriss/warpcms-sub000/internal/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(seen *string) *fiber.App {
	app := fiber.New()
	app.Use(New())
	app.Get("/", func(c *fiber.Ctx) error {
		*seen = log.RequestID(c.UserContext())
		return c.SendString(GetRequestID(c))
	})
	return app
}

func TestRequestID_Generated(t *testing.T) {
	var seen string
	app := newApp(&seen)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	id := resp.Header.Get(HeaderRequestID)
	_, err = uuid.FromString(id)
	assert.NoError(t, err)
	assert.Equal(t, id, seen)
}

func TestRequestID_Propagated(t *testing.T) {
	var seen string
	app := newApp(&seen)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderRequestID, "client-supplied")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "client-supplied", resp.Header.Get(HeaderRequestID))
	assert.Equal(t, "client-supplied", seen)
}

func TestRequestID_UnusableHeaderReplaced(t *testing.T) {
	for name, header := range map[string]string{
		"blank":     "   ",
		"too long":  strings.Repeat("a", MaxLength+1),
		"space":     "two words",
		"non ascii": "idé",
	} {
		t.Run(name, func(t *testing.T) {
			var seen string
			app := newApp(&seen)

			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set(HeaderRequestID, header)
			resp, err := app.Test(req)
			require.NoError(t, err)

			id := resp.Header.Get(HeaderRequestID)
			_, err = uuid.FromString(id)
			assert.NoError(t, err, "header %q", header)
			assert.Equal(t, id, seen)
		})
	}
}

func TestRequestID_TrimmedHeaderKept(t *testing.T) {
	var seen string
	app := newApp(&seen)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderRequestID, "  trace-42 ")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "trace-42", resp.Header.Get(HeaderRequestID))
	assert.Equal(t, "trace-42", seen)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("client-supplied"))
	assert.True(t, Valid(strings.Repeat("x", MaxLength)))
	assert.False(t, Valid(""))
	assert.False(t, Valid(strings.Repeat("x", MaxLength+1)))
	assert.False(t, Valid("a\tb"))
}

func TestGetRequestID_OutsideMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("[" + GetRequestID(c) + "]")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body := make([]byte, 8)
	n, _ := resp.Body.Read(body)
	assert.Equal(t, "[]", string(body[:n]))
}
