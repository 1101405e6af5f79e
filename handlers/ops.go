package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

const readyTimeout = 3 * time.Second

// RegisterOps mounts /health (liveness), /ready (every check passes) and /metrics.
func RegisterOps(r *gin.Engine, checks map[string]Check) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		results := make(map[string]string, len(checks))
		errs := make([]error, len(checks))
		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		var g errgroup.Group
		for i, name := range names {
			check := checks[name]
			g.Go(func() error {
				errs[i] = check(ctx)
				return nil
			})
		}
		_ = g.Wait()

		status := http.StatusOK
		for i, name := range names {
			if errs[i] != nil {
				results[name] = errs[i].Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"ready": status == http.StatusOK, "checks": results})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
