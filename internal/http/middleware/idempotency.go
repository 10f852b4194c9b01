// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for unsafe HTTP methods (POST).
// It validates an Idempotency-Key request header, looks the key up in the
// idempotency store, and annotates the request context so downstream
// handlers can:
//   - read the normalized key (GetIdempotencyKey) and the scope it was
//     looked up under (GetIdempotencyScope)
//   - detect replayed requests (IsReplay) and fetch the stored body
//     (ReplayBody)
//   - bypass rate limiting when a replay is served (via an internal flag)
//
// Design goals:
//   - Keep transport concerns (validation, context stashing) in middleware.
//   - Decouple persistence via a narrow IdempotencyLookup function type.
//   - Never mask store failures: a failed lookup aborts with 500.
package middleware

import (
	"context"
	"net/http"
	"net/url"
	"regexp"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations (e.g., POST).
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed marks responses served from the store.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay" // []byte: stored response body
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetIdempotencyKey returns the validated idempotency key stored in the Gin
// context by IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// GetIdempotencyScope returns the collection the key was looked up under.
// Handlers must save under the same scope.
func GetIdempotencyScope(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemScope)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IdempotencyScope narrows collection to a single caller. The subject is
// query-escaped so the result never contains ':' or '/' from the subject.
// An empty subject leaves collection unchanged.
func IdempotencyScope(collection, subject string) string {
	if subject == "" {
		return collection
	}
	return collection + "/" + url.QueryEscape(subject)
}

// IsReplay reports whether a stored response exists for this request's key.
func IsReplay(c *gin.Context) bool {
	_, ok := ReplayBody(c)
	return ok
}

// ReplayBody returns the stored response body for a replayed request.
func ReplayBody(c *gin.Context) ([]byte, bool) {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// Collection scopes keys, e.g. "tarefas".
	Collection string
	// PerSubject further scopes keys by the authenticated subject, so two
	// callers sending the same key never see each other's responses.
	PerSubject bool
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative RFC7230-like
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// IdempotencyLookup returns the stored response body for (collection, key).
// Expiry is the store's concern.
type IdempotencyLookup func(ctx context.Context, collection, key string) (body []byte, found bool, err error)

// IdempotencyValidator validates the Idempotency-Key header (if present),
// stashes it in the request context, and consults lookup for a stored
// response. On a hit it stashes the body and flags the request for
// rate-limit bypass.
//
// Behavior:
//   - If header is absent: the middleware is a no-op.
//   - If header fails validation: responds 400 bad_idempotency_key.
//   - If lookup fails: responds 500 idempotency_failed.
//
// The middleware does not write the replay itself; handlers decide how to
// serve it.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		// RFC-7230-ish token + common safe chars.
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			AbortWithError(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}

		scope := opts.Collection
		if opts.PerSubject {
			scope = IdempotencyScope(opts.Collection, UserID(c))
		}
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if lookup != nil {
			body, found, err := lookup(c.Request.Context(), scope, key)
			if err != nil {
				LoggerFrom(c).Error().Err(err).Msg("idempotency lookup failed")
				AbortWithError(c, http.StatusInternalServerError, "idempotency_failed", "idempotency store unavailable")
				return
			}
			if found {
				idemReplays.WithLabelValues(opts.Collection).Inc()
				c.Set(ctxKeyIdemReplay, body)
				c.Set(ctxKeyRateBypass, true) // let RL middleware skip limiting
			}
		}

		c.Next()
	}
}
