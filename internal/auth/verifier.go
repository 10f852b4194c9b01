package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access-token claim set. Scope is the space-delimited list of
// granted scopes.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// KeyProvider supplies the current verification keys.
type KeyProvider interface {
	Keys(ctx context.Context) (*KeySet, error)
}

// VerifierConfig holds the claims every token must carry.
type VerifierConfig struct {
	Audience string
	Issuer   string
	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration
}

// Verifier validates RS256 bearer tokens against a provider key set.
type Verifier struct {
	keys   KeyProvider
	cfg    VerifierConfig
	now    func() time.Time
	parser *jwt.Parser
}

// NewVerifier returns a Verifier that resolves signing keys through keys.
func NewVerifier(keys KeyProvider, cfg VerifierConfig) *Verifier {
	return &Verifier{
		keys:   keys,
		cfg:    cfg,
		now:    time.Now,
		parser: jwt.NewParser(),
	}
}

// Verify checks the raw Authorization header value and, when requiredScope
// is non-empty, that the token grants it. Every failure is an *Error.
func (v *Verifier) Verify(ctx context.Context, rawHeader, requiredScope string) (*Identity, error) {
	raw, err := bearerToken(rawHeader)
	if err != nil {
		return nil, err
	}

	unverified, _, err := v.parser.ParseUnverified(raw, &Claims{})
	if err != nil {
		return nil, newError(ErrMalformedToken, "", "", err)
	}
	kid, _ := unverified.Header["kid"].(string)

	set, err := v.keys.Keys(ctx)
	if err != nil {
		if ae, ok := AsError(err); ok {
			return nil, ae
		}
		return nil, newError(ErrUpstreamUnavailable, "", "", err)
	}
	pub, ok := set.Lookup(kid)
	if !ok {
		return nil, newError(ErrKeyNotFound, "", "", nil)
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return pub, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithLeeway(v.cfg.Leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, claimsError(err)
	}

	id := &Identity{
		Subject: claims.Subject,
		Scopes:  strings.Fields(claims.Scope),
		Claims:  claims,
	}
	if requiredScope != "" && !id.HasScope(requiredScope) {
		return nil, newError(ErrInsufficientScope, "", "", nil)
	}
	return id, nil
}

// bearerToken expects exactly "Bearer <token>", scheme case-insensitive.
func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", newError(ErrMissingHeader, "", "", nil)
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", newError(ErrMalformedHeader, "", "", nil)
	}
	return parts[1], nil
}

func claimsError(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return newError(ErrSignatureOrClaimsInvalid, CodeTokenExpired, "Token is expired", err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return newError(ErrSignatureOrClaimsInvalid, CodeInvalidClaims, "Incorrect claims, please check the audience and issuer", err)
	default:
		return newError(ErrSignatureOrClaimsInvalid, "", "", err)
	}
}
