package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testAudience = "https://tarefas.example/api"
	testIssuer   = "https://tenant.example/"
	testKID      = "test-key-1"
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func jwksJSON(t *testing.T, kid string, pub *rsa.PublicKey) []byte {
	t.Helper()
	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return b
}

// jwksServer serves the test key and counts requests.
type jwksServer struct {
	*httptest.Server
	hits   atomic.Int32
	failed atomic.Bool
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()
	body := jwksJSON(t, testKID, &signingKey(t).PublicKey)
	s := &jwksServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		if s.failed.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

type tokenOpts struct {
	kid      string
	audience string
	issuer   string
	subject  string
	scope    string
	expires  time.Time
	method   jwt.SigningMethod
}

func signToken(t *testing.T, o tokenOpts) string {
	t.Helper()
	if o.kid == "" {
		o.kid = testKID
	}
	if o.audience == "" {
		o.audience = testAudience
	}
	if o.issuer == "" {
		o.issuer = testIssuer
	}
	if o.subject == "" {
		o.subject = "auth0|user-1"
	}
	if o.expires.IsZero() {
		o.expires = time.Now().Add(time.Hour)
	}
	if o.method == nil {
		o.method = jwt.SigningMethodRS256
	}
	claims := Claims{
		Scope: o.scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   o.subject,
			Issuer:    o.issuer,
			Audience:  jwt.ClaimStrings{o.audience},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(o.expires),
		},
	}
	tok := jwt.NewWithClaims(o.method, claims)
	tok.Header["kid"] = o.kid
	s, err := tok.SignedString(signingKey(t))
	require.NoError(t, err)
	return s
}

func newTestVerifier(t *testing.T, srv *jwksServer) *Verifier {
	t.Helper()
	cache := NewKeySetCache(srv.URL, time.Hour, 2*time.Second)
	return NewVerifier(cache, VerifierConfig{Audience: testAudience, Issuer: testIssuer})
}
