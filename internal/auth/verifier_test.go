package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_ValidToken(t *testing.T) {
	srv := newJWKSServer(t)
	v := newTestVerifier(t, srv)

	tok := signToken(t, tokenOpts{scope: "create:tasks update:tasks"})
	id, err := v.Verify(context.Background(), "Bearer "+tok, ScopeCreateTasks)
	require.NoError(t, err)
	assert.Equal(t, "auth0|user-1", id.Subject)
	assert.Equal(t, []string{ScopeCreateTasks, ScopeUpdateTasks}, id.Scopes)
	assert.True(t, id.HasScope(ScopeUpdateTasks))
	assert.False(t, id.HasScope(ScopeDeleteTasks))
	require.NotNil(t, id.Claims)
	assert.Equal(t, testIssuer, id.Claims.Issuer)
}

func TestVerify_SchemeIsCaseInsensitive(t *testing.T) {
	srv := newJWKSServer(t)
	v := newTestVerifier(t, srv)

	_, err := v.Verify(context.Background(), "bEaReR "+signToken(t, tokenOpts{}), "")
	assert.NoError(t, err)
}

func TestVerify_HeaderErrors(t *testing.T) {
	srv := newJWKSServer(t)
	v := newTestVerifier(t, srv)
	tok := signToken(t, tokenOpts{})

	cases := []struct {
		name   string
		header string
		want   *Error
	}{
		{"empty", "", ErrMissingHeader},
		{"blank", "   ", ErrMissingHeader},
		{"no scheme", tok, ErrMalformedHeader},
		{"wrong scheme", "Basic " + tok, ErrMalformedHeader},
		{"three parts", "Bearer " + tok + " extra", ErrMalformedHeader},
		{"garbage token", "Bearer not.a.jwt", ErrMalformedToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tc.header, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			ae, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusUnauthorized, ae.Status())
		})
	}
	assert.EqualValues(t, 0, srv.hits.Load(), "header failures never reach the key set")
}

func TestVerify_UnknownKID(t *testing.T) {
	srv := newJWKSServer(t)
	v := newTestVerifier(t, srv)

	_, err := v.Verify(context.Background(), "Bearer "+signToken(t, tokenOpts{kid: "rotated-away"}), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	ae, _ := AsError(err)
	assert.Equal(t, CodeKeyNotFound, ae.Code)
	assert.Equal(t, http.StatusUnauthorized, ae.Status())
}

func TestVerify_ExpiredTokenDistinctFromMalformed(t *testing.T) {
	srv := newJWKSServer(t)
	v := newTestVerifier(t, srv)

	tok := signToken(t, tokenOpts{expires: time.Now().Add(-time.Hour)})
	_, err := v.Verify(context.Background(), "Bearer "+tok, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSignatureOrClaimsInvalid)
	assert.False(t, errors.Is(err, ErrMalformedHeader))

	ae, _ := AsError(err)
	assert.Equal(t, CodeTokenExpired, ae.Code)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_LeewayAcceptsSlightlyExpired(t *testing.T) {
	srv := newJWKSServer(t)
	cache := NewKeySetCache(srv.URL, time.Hour, time.Second)
	v := NewVerifier(cache, VerifierConfig{Audience: testAudience, Issuer: testIssuer, Leeway: time.Minute})

	tok := signToken(t, tokenOpts{expires: time.Now().Add(-10 * time.Second)})
	_, err := v.Verify(context.Background(), "Bearer "+tok, "")
	assert.NoError(t, err)
}

func TestVerify_WrongAudienceOrIssuer(t *testing.T) {
	srv := newJWKSServer(t)
	v := newTestVerifier(t, srv)

	for name, o := range map[string]tokenOpts{
		"audience": {audience: "https://other.example/api"},
		"issuer":   {issuer: "https://evil.example/"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), "Bearer "+signToken(t, o), "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSignatureOrClaimsInvalid)
			ae, _ := AsError(err)
			assert.Equal(t, CodeInvalidClaims, ae.Code)
		})
	}
}

func TestVerify_BadSignature(t *testing.T) {
	srv := newJWKSServer(t)
	v := newTestVerifier(t, srv)

	tok := signToken(t, tokenOpts{})
	// Flip a byte in the signature segment.
	b := []byte(tok)
	if b[len(b)-2] == 'A' {
		b[len(b)-2] = 'B'
	} else {
		b[len(b)-2] = 'A'
	}

	_, err := v.Verify(context.Background(), "Bearer "+string(b), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSignatureOrClaimsInvalid)
	ae, _ := AsError(err)
	assert.Equal(t, CodeInvalidToken, ae.Code)
}

func TestVerify_RejectsNonRS256(t *testing.T) {
	srv := newJWKSServer(t)
	v := newTestVerifier(t, srv)

	tok := signToken(t, tokenOpts{method: jwt.SigningMethodRS512})
	_, err := v.Verify(context.Background(), "Bearer "+tok, "")
	assert.ErrorIs(t, err, ErrSignatureOrClaimsInvalid)
}

func TestVerify_InsufficientScope(t *testing.T) {
	srv := newJWKSServer(t)
	v := newTestVerifier(t, srv)

	tok := signToken(t, tokenOpts{scope: "read:tasks create:tasks"})
	_, err := v.Verify(context.Background(), "Bearer "+tok, ScopeDeleteTasks)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientScope)
	ae, _ := AsError(err)
	assert.Equal(t, http.StatusForbidden, ae.Status())

	// No scope required: same token passes.
	_, err = v.Verify(context.Background(), "Bearer "+tok, "")
	assert.NoError(t, err)
}

func TestVerify_UpstreamUnavailable(t *testing.T) {
	srv := newJWKSServer(t)
	srv.failed.Store(true)
	v := newTestVerifier(t, srv)

	_, err := v.Verify(context.Background(), "Bearer "+signToken(t, tokenOpts{}), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	ae, _ := AsError(err)
	assert.Equal(t, http.StatusInternalServerError, ae.Status())
}

type failingKeys struct{ err error }

func (f failingKeys) Keys(context.Context) (*KeySet, error) { return nil, f.err }

func TestVerify_PlainProviderErrorWrapped(t *testing.T) {
	v := NewVerifier(failingKeys{err: errors.New("boom")}, VerifierConfig{Audience: testAudience, Issuer: testIssuer})
	_, err := v.Verify(context.Background(), "Bearer "+signToken(t, tokenOpts{}), "")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestIdentityContextAndBypass(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	id := BypassIdentity("")
	assert.Equal(t, "test-user", id.Subject)
	for _, s := range AllScopes {
		assert.True(t, id.HasScope(s))
	}

	ctx := NewContext(context.Background(), id)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, id, got)

	var nilID *Identity
	assert.False(t, nilID.HasScope(ScopeCreateTasks))
}
