// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package testutil

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/badmuriss/warpcms-sub000/internal/middleware/authjwt"
	"github.com/badmuriss/warpcms-sub000/internal/types"
	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
)

// HTTPHelper provides a robust way to make HTTP requests in tests.
// It enforces error checking and provides a fluent API for building requests.
type HTTPHelper struct {
	t   *testing.T
	app *fiber.App
}

// NewHTTPHelper creates a new test helper for a given Fiber app.
func NewHTTPHelper(t *testing.T, app *fiber.App) *HTTPHelper {
	require.NotNil(t, app, "Fiber app provided to HTTPHelper cannot be nil")
	return &HTTPHelper{t: t, app: app}
}

// Request represents a test request under construction.
type Request struct {
	helper  *HTTPHelper
	method  string
	path    string
	body    []byte
	headers http.Header
	cookies []*http.Cookie
}

// NewRequest begins building a new test request. It centralizes body marshaling.
func (h *HTTPHelper) NewRequest(method, path string, body interface{}) *Request {
	var bodyBytes []byte
	if body != nil {
		switch b := body.(type) {
		case []byte:
			bodyBytes = b
		case string:
			bodyBytes = []byte(b)
		default:
			jsonBytes, err := json.Marshal(body)
			require.NoError(h.t, err, "Failed to marshal request body to JSON")
			bodyBytes = jsonBytes
		}
	}

	req := &Request{
		helper:  h,
		method:  method,
		path:    path,
		body:    bodyBytes,
		headers: make(http.Header),
	}
	if body != nil {
		req.WithHeader(types.HeaderContentType, "application/json")
	}
	return req
}

// WithHeader adds a header to the request.
func (r *Request) WithHeader(key, value string) *Request {
	r.headers.Add(key, value)
	return r
}

// WithJWTAuth adds token as Authorization: Bearer header.
func (r *Request) WithJWTAuth(token string) *Request {
	return r.WithHeader(types.HeaderAuthorization, types.BearerPrefix+token)
}

// WithCookieAuth sends token in the access_token cookie, as browsers do.
func (r *Request) WithCookieAuth(token string) *Request {
	r.cookies = append(r.cookies, &http.Cookie{Name: types.AccessTokenCookie, Value: token})
	return r
}

// Send executes the request and returns the response.
func (r *Request) Send() *http.Response {
	req := httptest.NewRequest(r.method, r.path, bytes.NewReader(r.body))
	req.Header = r.headers
	for _, cookie := range r.cookies {
		req.AddCookie(cookie)
	}

	resp, err := r.helper.app.Test(req, int(10*time.Second.Milliseconds()))
	require.NoError(r.helper.t, err, "app.Test should not return an error")
	require.NotNil(r.helper.t, resp, "app.Test response should not be nil")
	return resp
}

// SendJSON executes the request and decodes the JSON response body.
func (r *Request) SendJSON(target interface{}) *http.Response {
	resp := r.Send()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(r.helper.t, err)
	require.NoError(r.helper.t, json.Unmarshal(data, target), "response body: %s", data)
	return resp
}

// CreateTestUserContext creates a test user context for testing purposes.
func CreateTestUserContext(uid string, role string) types.UserContext {
	userID, _ := uuid.FromString(uid)
	return types.UserContext{
		UserID:      userID,
		Username:    "test@example.com",
		DisplayName: "Test User",
		SystemRole:  role,
		CreatedDate: time.Now().Unix(),
	}
}

// GenerateTestJWT creates a session token valid for one hour
func GenerateTestJWT(t *testing.T, privateKeyPEM string, userCtx types.UserContext) string {
	t.Helper()
	token, err := authjwt.IssueToken(privateKeyPEM, "claim", userCtx, time.Hour)
	require.NoError(t, err, "Failed to generate test JWT")
	return token
}

// GenerateECDSAKeyPairPEM generates valid ECDSA key pairs for testing.
// Returns (publicKeyPEM, privateKeyPEM) as strings.
func GenerateECDSAKeyPairPEM(t *testing.T) (string, string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err, "Failed to generate ECDSA private key")

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err, "Failed to marshal ECDSA private key")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err, "Failed to marshal ECDSA public key")
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	return string(pubPEM), string(privPEM)
}
