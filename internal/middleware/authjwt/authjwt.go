// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package authjwt

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badmuriss/warpcms-sub000/internal/pkg/log"
	"github.com/badmuriss/warpcms-sub000/internal/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

// Config defines the config for the JWT middleware.
type Config struct {
	// The EC public key for validating ES256 tokens.
	PublicKey string
	// The claim key where the UserContext is stored.
	ClaimKey string
	// The context key to store the UserContext.
	UserCtxName string
}

var (
	ErrMissingToken = errors.New("missing or invalid JWT")
	ErrTokenExpired = errors.New("token has expired")
	ErrInvalidClaim = errors.New("invalid token claim format")
)

func configDefault(cfg Config) Config {
	if cfg.ClaimKey == "" {
		cfg.ClaimKey = "claim"
	}
	if cfg.UserCtxName == "" {
		cfg.UserCtxName = types.UserCtxName
	}
	return cfg
}

func unauthorized(c *fiber.Ctx, message string, details ...string) error {
	if details == nil {
		details = []string{}
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   message,
		"code":    "UNAUTHORIZED",
		"details": details,
	})
}

// New creates a new middleware handler.
func New(cfg Config) fiber.Handler {
	cfg = configDefault(cfg)

	// Parse the key once on startup.
	ecPublicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(cfg.PublicKey))
	if err != nil {
		panic(fmt.Sprintf("failed to parse EC public key: %v", err))
	}

	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c)
		if tokenString == "" {
			return unauthorized(c, ErrMissingToken.Error())
		}

		userCtx, err := validate(tokenString, ecPublicKey, cfg.ClaimKey)
		if err != nil {
			log.WarnWithContext(c.UserContext(), "rejected session token: %v", err)
			if errors.Is(err, ErrTokenExpired) {
				return unauthorized(c, "Token has expired")
			}
			return unauthorized(c, "Invalid token", err.Error())
		}

		c.Locals(cfg.UserCtxName, userCtx)
		return c.Next()
	}
}

// extractToken reads the bearer header first (API clients), then the
// access_token cookie (browsers).
func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get(types.HeaderAuthorization)
	if strings.HasPrefix(authHeader, types.BearerPrefix) {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, types.BearerPrefix)); token != "" {
			return token
		}
	}
	return c.Cookies(types.AccessTokenCookie)
}

// ValidateToken validates a JWT token and returns the UserContext if valid.
// It does not write to the response.
func ValidateToken(tokenString string, publicKey string, claimKey string) (types.UserContext, error) {
	ecPublicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKey))
	if err != nil {
		return types.UserContext{}, fmt.Errorf("failed to parse EC public key: %w", err)
	}
	return validate(tokenString, ecPublicKey, claimKey)
}

func validate(tokenString string, key *ecdsa.PublicKey, claimKey string) (types.UserContext, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Enforce the expected signing algorithm.
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return types.UserContext{}, ErrTokenExpired
		}
		return types.UserContext{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return types.UserContext{}, errors.New("invalid token")
	}

	claimData, ok := claims[claimKey].(map[string]interface{})
	if !ok {
		return types.UserContext{}, ErrInvalidClaim
	}

	userCtx, err := mapToUserContext(claimData)
	if err != nil {
		return userCtx, fmt.Errorf("invalid user context in token: %w", err)
	}
	return userCtx, nil
}

// mapToUserContext converts claim data to UserContext
func mapToUserContext(claimData map[string]interface{}) (types.UserContext, error) {
	var userCtx types.UserContext

	userIDStr, ok := claimData[types.HeaderUID].(string)
	if !ok {
		return userCtx, errors.New("missing or invalid uid in claim")
	}
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return userCtx, fmt.Errorf("invalid user ID: %v", err)
	}
	userCtx.UserID = userID

	if username, ok := claimData["username"].(string); ok {
		userCtx.Username = username
	}
	if displayName, ok := claimData["displayName"].(string); ok {
		userCtx.DisplayName = displayName
	}
	if systemRole, ok := claimData["role"].(string); ok {
		userCtx.SystemRole = systemRole
	}
	if createdDate, ok := claimData["createdDate"].(float64); ok {
		userCtx.CreatedDate = int64(createdDate)
	}

	return userCtx, nil
}

// IssueToken signs an ES256 session token for user. It backs local tooling
// and tests; the service itself only verifies tokens.
func IssueToken(privateKeyPEM string, claimKey string, user types.UserContext, ttl time.Duration) (string, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("failed to parse EC private key: %w", err)
	}
	if claimKey == "" {
		claimKey = "claim"
	}

	jti, err := uuid.NewV4()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"jti": jti.String(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		claimKey: map[string]interface{}{
			types.HeaderUID: user.UserID.String(),
			"username":      user.Username,
			"displayName":   user.DisplayName,
			"role":          user.SystemRole,
			"createdDate":   user.CreatedDate,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
}
