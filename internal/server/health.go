package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthTimeout bounds each dependency probe.
const healthTimeout = 2 * time.Second

type componentHealth struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

type healthResponse struct {
	Status    string                     `json:"status"`
	Timestamp time.Time                  `json:"timestamp"`
	Checks    map[string]componentHealth `json:"checks"`
}

// handleHealth probes the database and cache. A database failure makes
// the instance unhealthy; a cache failure only degrades it.
func (s *Server) handleHealth(c *gin.Context) {
	resp := healthResponse{Status: "ok", Timestamp: time.Now().UTC(), Checks: map[string]componentHealth{}}
	code := http.StatusOK

	if s.deps.Database != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		latency, err := s.deps.Database.Ping(ctx)
		cancel()
		resp.Checks["database"] = probe(latency, err)
		if err != nil {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	if s.deps.Cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		start := time.Now()
		err := s.deps.Cache.Ping(ctx)
		cancel()
		resp.Checks["cache"] = probe(time.Since(start), err)
		if err != nil && resp.Status == "ok" {
			resp.Status = "degraded"
		}
	}

	c.JSON(code, resp)
}

func probe(latency time.Duration, err error) componentHealth {
	if err != nil {
		return componentHealth{Status: "down", LatencyMs: latency.Milliseconds(), Error: err.Error()}
	}
	return componentHealth{Status: "up", LatencyMs: latency.Milliseconds()}
}

func (s *Server) handleStats(c *gin.Context) {
	if s.deps.Metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.deps.Metrics.Snapshot())
}
