package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var corruptRecords = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "gateway",
		Name:      "corrupt_records_total",
		Help:      "Documents quarantined while building snapshots.",
	},
	[]string{"field"},
)

var coalescedChanges = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "gateway",
		Name:      "coalesced_changes_total",
		Help:      "Changes merged into a pending change of the same user.",
	},
)

func observeCorrupt(field string) {
	corruptRecords.WithLabelValues(field).Inc()
}

func observeCoalesced() {
	coalescedChanges.Inc()
}
