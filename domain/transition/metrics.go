package transition

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusflow_transitions_total",
		Help: "Total number of single transition attempts by final status",
	}, []string{"status"})

	batchRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusflow_batch_records_total",
		Help: "Total number of records handled by batch transitions by result",
	}, []string{"result"})

	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statusflow_batch_duration_seconds",
		Help:    "Duration of batch transitions by mode",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"mode"})
)
