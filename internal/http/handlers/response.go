// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints.
// Every failure is written as the shared error envelope so that handler
// errors and middleware errors (auth, rate limiting, idempotency) look the
// same to clients.
//
// Conventions:
//   - All error responses carry a stable `code` (see errors.go).
//   - `fail()` centralizes error logging and formatting; 5xx responses are
//     logged with the request-scoped logger.
//   - `ok()` and `okRaw()` write success responses.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "description": "task not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-tasks-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
// It has the same JSON shape as middleware.ErrorBody and exists so the API
// docs can reference it.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable description (safe to show to users)
	Description string `json:"description" example:"task not found"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, desc string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("description", desc).
			Msg("api error")
	}
	middleware.AbortWithError(c, status, code, desc)
}

// Fail is the exported variant of fail() for router-level handlers
// (NoRoute, NoMethod).
func Fail(c *gin.Context, status int, code, desc string) { fail(c, status, code, desc) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// okRaw writes pre-encoded JSON bytes as they are.
func okRaw(c *gin.Context, status int, body []byte) {
	c.Data(status, "application/json; charset=utf-8", body)
}
