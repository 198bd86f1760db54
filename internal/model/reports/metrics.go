package reports

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var histogramGenerationTime = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "tracker",
		Subsystem: "reports",
		Name:      "histogram_generation_time_seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
	},
	[]string{"error"},
)

func observeGeneration(elapsed time.Duration, err bool) {
	histogramGenerationTime.
		WithLabelValues(strconv.FormatBool(err)).
		Observe(elapsed.Seconds())
}
