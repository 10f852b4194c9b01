// Package auth verifies bearer tokens issued by an external identity provider.
//
// The provider publishes its RSA signing keys as a JSON Web Key Set (JWKS).
// KeySetCache fetches and caches that set; Verifier checks a token's
// signature, audience, issuer and scope against it and produces an Identity.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/tbourn/go-tasks-backend/internal/observability"
)

const (
	// DefaultCacheTTL is how long a fetched key set is served without refetching.
	DefaultCacheTTL = time.Hour
	// DefaultFetchTimeout bounds a single JWKS request.
	DefaultFetchTimeout = 5 * time.Second

	maxJWKSBytes = 1 << 20
)

var jwksFetchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jwks_fetch_total",
		Help: "JWKS fetch attempts by result (ok, error, stale).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(jwksFetchTotal)
}

// KeySet is an immutable set of RSA verification keys indexed by key id.
type KeySet struct {
	keys map[string]*rsa.PublicKey
}

// Lookup returns the RSA public key published under kid.
func (s *KeySet) Lookup(kid string) (*rsa.PublicKey, bool) {
	if s == nil {
		return nil, false
	}
	k, ok := s.keys[kid]
	return k, ok
}

// Len reports how many usable keys the set holds.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// ParseKeySet decodes a JWKS document. Non-RSA keys, keys without a kid,
// keys marked for a use other than signing and keys whose modulus or
// exponent does not decode are skipped; only a malformed document fails.
func ParseKeySet(data []byte) (*KeySet, error) {
	var doc jwksDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	set := &KeySet{keys: make(map[string]*rsa.PublicKey, len(doc.Keys))}
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := rsaPublicKey(k.N, k.E)
		if err != nil {
			log.Debug().Err(err).Str("kid", k.Kid).Msg("skipping undecodable jwk")
			continue
		}
		set.keys[k.Kid] = pub
	}
	return set, nil
}

func rsaPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := decodeSegment(n)
	if err != nil || len(nb) == 0 {
		return nil, fmt.Errorf("invalid modulus")
	}
	eb, err := decodeSegment(e)
	if err != nil || len(eb) == 0 || len(eb) > 4 {
		return nil, fmt.Errorf("invalid exponent")
	}
	exp := int(new(big.Int).SetBytes(eb).Int64())
	if exp < 3 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: exp}, nil
}

// decodeSegment accepts base64url with or without padding.
func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// KeySetCache holds the provider key set for a fixed TTL.
//
// A set younger than the TTL is returned without a network call; an expired
// or empty set triggers a refetch that replaces the entry wholesale. When a
// refetch fails the expired set is still served, if there is one.
// Concurrent refreshes share a single in-flight request.
type KeySetCache struct {
	url    string
	ttl    time.Duration
	client *http.Client
	now    func() time.Time

	mu        sync.RWMutex
	set       *KeySet
	fetchedAt time.Time

	group singleflight.Group
}

// CacheOption customizes a KeySetCache.
type CacheOption func(*KeySetCache)

// WithHTTPClient replaces the default HTTP client. Its Timeout bounds fetches.
func WithHTTPClient(hc *http.Client) CacheOption {
	return func(c *KeySetCache) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *KeySetCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewKeySetCache builds a cache for the key set published at url.
// Non-positive ttl and timeout fall back to the defaults.
func NewKeySetCache(url string, ttl, timeout time.Duration, opts ...CacheOption) *KeySetCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	c := &KeySetCache{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Keys returns the current key set, fetching it when the cached copy is
// missing, empty or older than the TTL.
func (c *KeySetCache) Keys(ctx context.Context) (*KeySet, error) {
	if set, ok := c.fresh(); ok {
		return set, nil
	}

	v, err, _ := c.group.Do("jwks", func() (any, error) {
		// Another caller may have refreshed while we waited.
		if set, ok := c.fresh(); ok {
			return set, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*KeySet), nil
}

func (c *KeySetCache) fresh() (*KeySet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.set.Len() > 0 && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.set, true
	}
	return nil, false
}

func (c *KeySetCache) refresh(ctx context.Context) (*KeySet, error) {
	ctx, span := observability.Tracer("auth").Start(ctx, "jwks.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", c.url))

	set, err := c.fetch(ctx)
	if err == nil {
		span.SetAttributes(attribute.Int("jwks.keys", set.Len()))
		c.mu.Lock()
		c.set = set
		c.fetchedAt = c.now()
		c.mu.Unlock()
		jwksFetchTotal.WithLabelValues("ok").Inc()
		return set, nil
	}

	span.RecordError(err)
	c.mu.RLock()
	stale := c.set
	c.mu.RUnlock()
	if stale != nil {
		span.SetAttributes(attribute.Bool("jwks.stale", true))
		jwksFetchTotal.WithLabelValues("stale").Inc()
		zerolog.Ctx(ctx).Warn().Err(err).Str("url", c.url).Msg("jwks refresh failed; serving cached keys")
		return stale, nil
	}

	jwksFetchTotal.WithLabelValues("error").Inc()
	span.SetStatus(codes.Error, "jwks unavailable")
	return nil, newError(ErrUpstreamUnavailable, "", "", err)
}

func (c *KeySetCache) fetch(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return nil, fmt.Errorf("jwks: read body: %w", err)
	}
	return ParseKeySet(body)
}
