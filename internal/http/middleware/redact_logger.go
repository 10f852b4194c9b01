// RedactingLogger is the access logger used when LOG_REDACT is on. It never
// logs bodies, masks credential-bearing headers outright, and pattern-scrubs
// ids, emails and phone numbers from the query string and remaining headers.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RedactOptions adds header names (case-insensitive) to the fully masked set.
type RedactOptions struct {
	MaskHeaders []string
}

var defaultMaskedHeaders = []string{"Authorization", "Cookie", "Set-Cookie", HeaderIdempotencyKey}

// Ids go first: the phone pattern would otherwise eat the digit groups of a
// UUID.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

type redactor struct {
	masked map[string]struct{}
}

func newRedactor(extra []string) redactor {
	r := redactor{masked: make(map[string]struct{}, len(defaultMaskedHeaders)+len(extra))}
	for _, h := range append(append([]string{}, defaultMaskedHeaders...), extra...) {
		if h = strings.TrimSpace(h); h != "" {
			r.masked[http.CanonicalHeaderKey(h)] = struct{}{}
		}
	}
	return r
}

func (redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func (r redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[http.CanonicalHeaderKey(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger logs like Logger but with scrubbed query and headers.
// Client IP, user agent and referer are left out.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	red := newRedactor(opts.MaskHeaders)
	return func(c *gin.Context) {
		start := time.Now()
		l := attachLogger(c, scopedLogger(c))

		query := red.scrub(truncate(c.Request.URL.RawQuery, maxQueryLogLength))
		headers := red.headers(c.Request.Header)

		c.Next()

		accessEvent(l, c).
			Str("query", query).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
