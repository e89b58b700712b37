package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hierarchy",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of versioned write conflicts broken down by operation.",
	}, []string{"kind"})

	cascadeDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hierarchy",
		Subsystem: "cascade",
		Name:      "deleted_total",
		Help:      "Total number of records removed by deletions broken down by entity.",
	}, []string{"entity"})

	authzDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hierarchy",
		Subsystem: "authz",
		Name:      "denials_total",
		Help:      "Total number of scope authorization denials broken down by reason.",
	}, []string{"reason"})
)

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	writeConflicts.WithLabelValues(kind).Inc()
}

func recordCascadeDelete(entity string, n int64) {
	if n <= 0 {
		return
	}
	cascadeDeletes.WithLabelValues(entity).Add(float64(n))
}

func recordDenial(reason string) {
	authzDenials.WithLabelValues(reason).Inc()
}
