// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes give clients a stable,
// machine-readable error taxonomy that supplements the human-readable description.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (e.g., bad_request, not_found) mirror HTTP status semantics.
//   - Domain-specific codes (e.g., create_failed, idempotency_failed) are reserved
//     for failures that cannot be conveyed by status alone.
//   - Authentication and authorization codes are not listed here; they are
//     produced by the auth package and rendered by middleware.ErrorRenderer.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_found",
//	  "description": "task not found"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeCreateFailed      = "create_failed"
	ErrCodeListFailed        = "list_failed"
	ErrCodeUpdateFailed      = "update_failed"
	ErrCodeDeleteFailed      = "delete_failed"
	ErrCodeIdempotencyFailed = "idempotency_failed"
	ErrCodeNotReady          = "not_ready"
)
