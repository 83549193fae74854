package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler serves liveness, readiness, metrics and a stats snapshot
// next to the worker loop.
func (w *Worker) HealthHandler(reg *prometheus.Registry) http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())

	// liveness: process is up
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// readiness: loop is running and the queue answers a ping
	r.GET("/readyz", func(c *gin.Context) {
		if !w.isReady() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		if err := w.queue.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "queue_unreachable"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/statusz", func(c *gin.Context) {
		snap := w.Stats()

		c.JSON(http.StatusOK, gin.H{
			"processed":     snap.Processed,
			"failed":        snap.Failed,
			"malformed":     snap.Malformed,
			"dead_lettered": snap.DeadLettered,
			"avg_duration":  snap.AverageDuration.String(),
			"max_duration":  snap.MaxDuration.String(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return r
}
