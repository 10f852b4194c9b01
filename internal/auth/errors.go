package auth

import (
	"errors"
	"net/http"
)

// Kind classifies a verification failure.
type Kind int

const (
	KindMissingHeader Kind = iota + 1
	KindMalformedHeader
	KindMalformedToken
	KindKeyNotFound
	KindSignatureOrClaimsInvalid
	KindInsufficientScope
	KindUpstreamUnavailable
)

// Stable error codes carried by *Error and rendered to clients.
const (
	CodeHeaderMissing     = "authorization_header_missing"
	CodeInvalidHeader     = "invalid_header"
	CodeInvalidTokenHdr   = "invalid_token_header"
	CodeKeyNotFound       = "key_not_found"
	CodeTokenExpired      = "token_expired"
	CodeInvalidClaims     = "invalid_claims"
	CodeInvalidToken      = "invalid_token"
	CodeInsufficientScope = "insufficient_scope"
	CodeJWKSUnavailable   = "jwks_unavailable"
)

// Error is the structured failure returned by the verifier and key-set cache.
// Match on a kind with errors.Is against the Err* sentinels below.
type Error struct {
	Kind        Kind
	Code        string
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Description + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Description
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Status maps the failure onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindInsufficientScope:
		return http.StatusForbidden
	case KindUpstreamUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

// Sentinels for errors.Is.
var (
	ErrMissingHeader            = &Error{Kind: KindMissingHeader, Code: CodeHeaderMissing, Description: "Authorization header is expected"}
	ErrMalformedHeader          = &Error{Kind: KindMalformedHeader, Code: CodeInvalidHeader, Description: "Authorization header must be Bearer token"}
	ErrMalformedToken           = &Error{Kind: KindMalformedToken, Code: CodeInvalidTokenHdr, Description: "Unable to parse token header"}
	ErrKeyNotFound              = &Error{Kind: KindKeyNotFound, Code: CodeKeyNotFound, Description: "Unable to find appropriate key"}
	ErrSignatureOrClaimsInvalid = &Error{Kind: KindSignatureOrClaimsInvalid, Code: CodeInvalidToken, Description: "Unable to validate token"}
	ErrInsufficientScope        = &Error{Kind: KindInsufficientScope, Code: CodeInsufficientScope, Description: "Permission denied"}
	ErrUpstreamUnavailable      = &Error{Kind: KindUpstreamUnavailable, Code: CodeJWKSUnavailable, Description: "Unable to fetch signing keys"}
)

func newError(proto *Error, code, desc string, cause error) *Error {
	e := *proto
	if code != "" {
		e.Code = code
	}
	if desc != "" {
		e.Description = desc
	}
	e.Err = cause
	return &e
}

// AsError extracts an *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
