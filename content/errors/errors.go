// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/badmuriss/warpcms-sub000/internal/database/postgres"
	"github.com/badmuriss/warpcms-sub000/internal/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// Content service specific errors
var (
	ErrInvalidRequestBody = errors.New("invalid request body")
	ErrUnknownReference   = errors.New("unknown reference table")
	ErrMissingParameter   = errors.New("missing required parameter")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrMissingUserContext = errors.New("missing user context")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrDatabaseOperation  = errors.New("database operation failed")
)

// Error codes
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeUnknownReference   = "UNKNOWN_REFERENCE_TABLE"
	CodeMissingParameter   = "MISSING_PARAMETER"
	CodeInvalidParameter   = "INVALID_PARAMETER"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeQueryTimeout       = "QUERY_TIMEOUT"
	CodeDatabaseOperation  = "DATABASE_OPERATION_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// ValidationError carries every problem found while compiling a filter.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid filter: %d problem(s)", len(e.Details))
}

// NewValidationError wraps compiler errors
func NewValidationError(details []string) *ValidationError {
	return &ValidationError{Details: details}
}

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details"`
}

func respond(c *fiber.Ctx, status int, code, message string, details ...string) error {
	if details == nil {
		details = []string{}
	}
	return c.Status(status).JSON(ErrorResponse{Error: message, Code: code, Details: details})
}

// HandleServiceError handles service errors and returns appropriate HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		return HandleValidationError(c, validation.Details)
	case errors.Is(err, ErrInvalidRequestBody):
		return respond(c, http.StatusBadRequest, CodeInvalidRequestBody, "Invalid request body", err.Error())
	case errors.Is(err, ErrUnknownReference):
		return respond(c, http.StatusBadRequest, CodeUnknownReference, "Unknown reference table", err.Error())
	case errors.Is(err, ErrMissingParameter):
		return respond(c, http.StatusBadRequest, CodeMissingParameter, "Missing required parameter", err.Error())
	case errors.Is(err, ErrInvalidParameter):
		return respond(c, http.StatusBadRequest, CodeInvalidParameter, "Invalid parameter", err.Error())
	case errors.Is(err, ErrMissingUserContext):
		return respond(c, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
	case errors.Is(err, ErrPermissionDenied):
		return respond(c, http.StatusForbidden, CodePermissionDenied, "Permission denied")
	case errors.Is(err, postgres.ErrQueryTimeout):
		log.ErrorWithContext(c.UserContext(), "list query timed out: %v", err)
		return respond(c, http.StatusGatewayTimeout, CodeQueryTimeout, "Query timed out")
	case errors.Is(err, postgres.ErrInvalidValue):
		return respond(c, http.StatusBadRequest, CodeValidationFailed, "Invalid filter", err.Error())
	case errors.Is(err, ErrDatabaseOperation), errors.Is(err, postgres.ErrUndefinedObject), errors.Is(err, postgres.ErrQueryFailed):
		log.ErrorWithContext(c.UserContext(), "list query failed: %v", err)
		return respond(c, http.StatusInternalServerError, CodeDatabaseOperation, "Database operation failed")
	default:
		log.ErrorWithContext(c.UserContext(), "unexpected error: %v", err)
		return respond(c, http.StatusInternalServerError, CodeInternalError, "Internal server error")
	}
}

// HandleValidationError writes a 400 listing every filter problem verbatim
func HandleValidationError(c *fiber.Ctx, details []string) error {
	return respond(c, http.StatusBadRequest, CodeValidationFailed, "Invalid filter", details...)
}

// HandleUserContextError handles missing user context errors
func HandleUserContextError(c *fiber.Ctx) error {
	return HandleServiceError(c, ErrMissingUserContext)
}
