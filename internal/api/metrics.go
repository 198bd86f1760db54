package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"
)

var histogramRequestTime = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "tracker",
		Subsystem: "http",
		Name:      "histogram_request_time_seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
	},
	[]string{"route", "status"},
)

func observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		histogramRequestTime.
			WithLabelValues(route, strconv.Itoa(status)).
			Observe(elapsed.Seconds())
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
	}
}
