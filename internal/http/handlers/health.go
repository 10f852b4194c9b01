// Probe handlers.
//
// /health is pure liveness and never touches dependencies. /ready runs each
// registered check under a short timeout and answers 503 when any fails.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultReadyTimeout bounds each readiness check.
const DefaultReadyTimeout = 2 * time.Second

// Check is a named dependency probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Probes
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready returns the readiness handler. timeout <= 0 uses DefaultReadyTimeout.
//
// @ID          ready
// @Summary     Readiness probe
// @Tags        Probes
// @Produce     json
// @Success     200  {object}  map[string]string
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /ready [get]
func Ready(timeout time.Duration, checks ...Check) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	return func(c *gin.Context) {
		for _, chk := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
			err := chk.Probe(ctx)
			cancel()
			if err != nil {
				c.Header("Cache-Control", "no-store")
				fail(c, http.StatusServiceUnavailable, ErrCodeNotReady, chk.Name+" unreachable")
				return
			}
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
