// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the error envelope shared by middleware and the single
// renderer that turns errors recorded with c.Error into JSON responses.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-tasks-backend/internal/auth"
)

// ErrorBody is the JSON error envelope used across the API.
type ErrorBody struct {
	RequestID   string `json:"request_id,omitempty"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// AbortWithError writes the standard envelope and aborts the chain.
func AbortWithError(c *gin.Context, status int, code, desc string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		RequestID:   c.Writer.Header().Get(requestIDHeader),
		Code:        code,
		Description: desc,
	})
}

// ErrorRenderer renders the last error recorded on the context when nothing
// has been written yet. *auth.Error maps to its own status and code; any
// other error becomes a 500.
//
// Install it before any middleware whose failures it should render.
func ErrorRenderer() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if ae, ok := auth.AsError(err); ok {
			if ae.Status() >= http.StatusInternalServerError {
				LoggerFrom(c).Error().Err(err).Str("code", ae.Code).Msg("auth dependency failure")
			}
			if ae.Kind != auth.KindInsufficientScope && ae.Status() == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			}
			AbortWithError(c, ae.Status(), ae.Code, ae.Description)
			return
		}

		LoggerFrom(c).Error().Err(err).Msg("unhandled error")
		AbortWithError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
